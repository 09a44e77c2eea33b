package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/invite"
	"github.com/dukerupert/larder/internal/membership"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/retrieval"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
	"github.com/google/uuid"
)

type Options struct {
	JWTSecret     string
	TokenTTL      time.Duration
	StoreTimeout  time.Duration
	JoinRateLimit int
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	gateway     *store.Gateway
	elevated    *store.Elevated
	verifier    *auth.Verifier
	membership  *membership.Service
	householdH  *handler.HouseholdHandler
	pantryH     *handler.PantryHandler
	rateLimiter *middleware.RateLimiter
	joinLimit   int
	logger      *slog.Logger
}

func New(db *sql.DB, cache retrieval.Cache, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	elevated := store.NewElevated(db, opts.StoreTimeout)
	gateway := store.NewGateway(db, opts.StoreTimeout)

	retriever := retrieval.NewRetriever(cache, logger)
	svc := membership.NewService(gateway, elevated, invite.NewGenerator(logger), retriever, hub, logger)

	joinLimit := opts.JoinRateLimit
	if joinLimit <= 0 {
		joinLimit = 10
	}

	return &Server{
		db:          db,
		hub:         hub,
		gateway:     gateway,
		elevated:    elevated,
		verifier:    auth.NewVerifier(opts.JWTSecret, opts.TokenTTL),
		membership:  svc,
		householdH:  handler.NewHouseholdHandler(svc, logger),
		pantryH:     handler.NewPantryHandler(gateway, retriever, hub, logger),
		rateLimiter: middleware.NewRateLimiter(),
		joinLimit:   joinLimit,
		logger:      logger,
	}
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Verifier() *auth.Verifier {
	return s.verifier
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.verifier, s.elevated, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByUser, s.joinLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Household membership
	mux.HandleFunc("GET /api/household", s.householdH.Current)
	mux.HandleFunc("POST /api/household/join", s.rateLimitedHandler(s.householdH.Join))
	mux.HandleFunc("POST /api/household/leave", s.householdH.Leave)
	mux.HandleFunc("POST /api/household/convert", s.householdH.Convert)

	// Pantry
	mux.HandleFunc("GET /api/pantry", s.pantryH.List)
	mux.HandleFunc("POST /api/pantry", s.pantryH.Create)
	mux.HandleFunc("POST /api/pantry/bulk", s.pantryH.Bulk)
	mux.HandleFunc("PATCH /api/pantry/{id}", s.pantryH.Update)
	mux.HandleFunc("DELETE /api/pantry/{id}", s.pantryH.Delete)
	mux.HandleFunc("GET /api/pantry/search", s.pantryH.Search)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.locate))
}

// locate puts a WebSocket connection in the room of the caller's current
// household.
func (s *Server) locate(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID := auth.UserID(r.Context())
	m, err := s.gateway.As(userID).Membership(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("read membership: %w", err)
	}
	if m == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("user %s has no household", userID)
	}
	return userID, m.HouseholdID, nil
}
