package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "households", "household_members", "pantry_items"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestSignupTrigger(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	userID := uuid.New()
	_, err = db.Exec(`INSERT INTO users (id, email) VALUES (?, ?)`, userID, "a@example.com")
	require.NoError(t, err)

	var (
		householdID string
		name        string
		personal    bool
		code        *string
	)
	err = db.QueryRow(
		`SELECT h.id, h.name, h.is_personal, h.invite_code
		 FROM household_members m JOIN households h ON h.id = m.household_id
		 WHERE m.user_id = ?`, userID,
	).Scan(&householdID, &name, &personal, &code)
	require.NoError(t, err)
	assert.Equal(t, "My Household", name)
	assert.True(t, personal)
	assert.Nil(t, code)

	_, err = uuid.Parse(householdID)
	assert.NoError(t, err, "trigger must generate a parseable UUID")
}

func TestJoinableHouseholdNeedsInviteCode(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	owner := uuid.New()
	_, err = db.Exec(`INSERT INTO users (id) VALUES (?)`, owner)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO households (id, name, is_personal, owner_id) VALUES (?, 'Shared', 0, ?)`, uuid.New(), owner)
	assert.Error(t, err)
}

func TestOneMembershipPerUser(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	owner := uuid.New()
	_, err = db.Exec(`INSERT INTO users (id) VALUES (?)`, owner)
	require.NoError(t, err)

	other := uuid.New()
	_, err = db.Exec(`INSERT INTO households (id, name, invite_code, is_personal, owner_id) VALUES (?, 'Shared', 'ABCDEF', 0, ?)`, other, owner)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO household_members (id, household_id, user_id) VALUES (?, ?, ?)`, uuid.New(), other, owner)
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	applied, err := Migrate(t.Context(), db)
	require.NoError(t, err)
	assert.Zero(t, applied)
}
