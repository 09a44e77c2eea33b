package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/google/uuid"
)

// UserProvisioner records a verified user on first sight.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, id uuid.UUID, email string) (bool, error)
}

// RequireAuth validates the bearer token, makes sure the user exists (which
// provisions their personal household on first contact) and populates
// AuthContext. Users already provisioned by this process skip the store.
func RequireAuth(verifier *auth.Verifier, users UserProvisioner, logger *slog.Logger) func(http.Handler) http.Handler {
	var provisioned sync.Map
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}

			ac, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("rejected token", "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if _, ok := provisioned.Load(ac.UserID); !ok {
				created, err := users.EnsureUser(r.Context(), ac.UserID, ac.Email)
				if err != nil {
					logger.Error("ensure user", "user_id", ac.UserID, "error", err)
					writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Could not load user")
					return
				}
				if created {
					logger.Info("provisioned user", "user_id", ac.UserID)
				}
				provisioned.Store(ac.UserID, struct{}{})
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a WebSocket upgrade, so the token may also arrive as ?access_token=.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, true
	}
	return "", false
}
