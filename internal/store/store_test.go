package store

import (
	"context"
	"testing"

	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*Elevated, *Gateway) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewElevated(db, 0), NewGateway(db, 0)
}

// signup creates a user through the signup trigger and returns the id and
// the personal household it was given.
func signup(t *testing.T, el *Elevated, email string) (uuid.UUID, *model.HouseholdMember) {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	created, err := el.EnsureUser(ctx, id, email)
	require.NoError(t, err)
	require.True(t, created)

	m, err := el.Membership(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return id, m
}

func strPtr(s string) *string { return &s }
