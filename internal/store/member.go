package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
)

func scanHouseholdMember(s scanner) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	err := s.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const householdMemberCols = `id, household_id, user_id, joined_at`

func getMembership(ctx context.Context, c conn, userID uuid.UUID) (*model.HouseholdMember, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	row := c.db.QueryRowContext(ctx,
		`SELECT `+householdMemberCols+` FROM household_members WHERE user_id = ?`, userID,
	)
	m, err := scanHouseholdMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// Membership returns the user's membership row, or nil if there is none.
func (e *Elevated) Membership(ctx context.Context, userID uuid.UUID) (*model.HouseholdMember, error) {
	return getMembership(ctx, e.conn, userID)
}

// DeleteMembership removes the user's membership row only while it still
// points at householdID. It reports 0 when the row is gone or has moved on,
// which is not an error.
func (e *Elevated) DeleteMembership(ctx context.Context, userID, householdID uuid.UUID) (int64, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	result, err := e.db.ExecContext(ctx,
		`DELETE FROM household_members WHERE user_id = ? AND household_id = ?`, userID, householdID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete membership: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// InsertMembership adds the user to a household. If the user already has a
// membership row the UNIQUE constraint rejects the insert with ErrDuplicate.
func (e *Elevated) InsertMembership(ctx context.Context, userID, householdID uuid.UUID) (*model.HouseholdMember, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	row := e.db.QueryRowContext(ctx,
		`INSERT INTO household_members (id, household_id, user_id) VALUES (?, ?, ?)
		 RETURNING `+householdMemberCols,
		uuid.New(), householdID, userID,
	)
	m, err := scanHouseholdMember(row)
	if err != nil {
		return nil, writeErr("insert membership", err)
	}
	return m, nil
}

func (e *Elevated) CountMembers(ctx context.Context, householdID uuid.UUID) (int, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	var n int
	err := e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM household_members WHERE household_id = ?`, householdID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

// Membership returns the caller's own membership row.
func (r *Restricted) Membership(ctx context.Context) (*model.HouseholdMember, error) {
	return getMembership(ctx, r.conn, r.userID)
}

// ListMembers returns the members of the caller's current household.
func (r *Restricted) ListMembers(ctx context.Context) ([]model.HouseholdMember, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.household_id, m.user_id, m.joined_at
		 FROM household_members m
		 WHERE `+fmt.Sprintf(memberOf, "m.household_id")+`
		 ORDER BY m.joined_at ASC`,
		r.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		m, err := scanHouseholdMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}
