package store

import (
	"context"
	"testing"

	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserCreatesPersonalHousehold(t *testing.T) {
	el, _ := setupTestDB(t)
	ctx := context.Background()

	id, m := signup(t, el, "alice@example.com")
	assert.Equal(t, id, m.UserID)

	h, err := el.HouseholdByID(ctx, m.HouseholdID)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.IsPersonal)
	assert.Equal(t, id, h.OwnerID)
	assert.Equal(t, model.DefaultPersonalHouseholdName, h.Name)
	assert.Nil(t, h.InviteCode)
	assert.NotEqual(t, uuid.Nil, h.ID)

	u, err := el.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	el, _ := setupTestDB(t)
	ctx := context.Background()

	id, first := signup(t, el, "bob@example.com")

	created, err := el.EnsureUser(ctx, id, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, created)

	again, err := el.Membership(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.HouseholdID, again.HouseholdID, "second ensure must not create another household")
}

func TestUserByIDNotFound(t *testing.T) {
	el, _ := setupTestDB(t)

	u, err := el.UserByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, u)
}
