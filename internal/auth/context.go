package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// AuthContext identifies the caller of a request. Household membership is
// deliberately absent: it can change mid-session and is always re-read.
type AuthContext struct {
	UserID uuid.UUID
	Email  string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) uuid.UUID {
	ac, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil
	}
	return ac.UserID
}
