package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
)

func scanHousehold(s scanner) (*model.Household, error) {
	var h model.Household
	var code sql.NullString
	err := s.Scan(&h.ID, &h.Name, &code, &h.IsPersonal, &h.OwnerID, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	if code.Valid {
		h.InviteCode = &code.String
	}
	return &h, nil
}

const householdCols = `h.id, h.name, h.invite_code, h.is_personal, h.owner_id, h.created_at`

// NewHousehold describes a household row to insert.
type NewHousehold struct {
	Name       string
	OwnerID    uuid.UUID
	InviteCode *string
	Personal   bool
}

func (e *Elevated) getHousehold(ctx context.Context, where string, args ...any) (*model.Household, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	row := e.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households h WHERE `+where, args...)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (e *Elevated) HouseholdByID(ctx context.Context, id uuid.UUID) (*model.Household, error) {
	return e.getHousehold(ctx, `h.id = ?`, id)
}

// JoinableHouseholdByCode looks up a household by invite code. Personal
// households are filtered out by the query itself, so a personal household's
// code never resolves to a row.
func (e *Elevated) JoinableHouseholdByCode(ctx context.Context, code string) (*model.Household, error) {
	return e.getHousehold(ctx, `h.invite_code = ? AND h.is_personal = 0`, code)
}

// IsPersonalCode reports whether code belongs to a personal household without
// returning anything about that household.
func (e *Elevated) IsPersonalCode(ctx context.Context, code string) (bool, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	var personal bool
	err := e.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM households WHERE invite_code = ? AND is_personal = 1)`, code,
	).Scan(&personal)
	if err != nil {
		return false, fmt.Errorf("classify invite code: %w", err)
	}
	return personal, nil
}

// CreateHousehold inserts a household. An invite code collision is reported
// as ErrDuplicate so the caller can retry with a fresh code.
func (e *Elevated) CreateHousehold(ctx context.Context, nh NewHousehold) (*model.Household, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	id := uuid.New()
	var code sql.NullString
	if nh.InviteCode != nil {
		code = sql.NullString{String: *nh.InviteCode, Valid: true}
	}

	row := e.db.QueryRowContext(ctx,
		`INSERT INTO households (id, name, invite_code, is_personal, owner_id) VALUES (?, ?, ?, ?, ?)
		 RETURNING id, name, invite_code, is_personal, owner_id, created_at`,
		id, nh.Name, code, nh.Personal, nh.OwnerID,
	)
	h, err := scanHousehold(row)
	if err != nil {
		return nil, writeErr("insert household", err)
	}
	return h, nil
}

// MakeJoinable flips a personal household to joinable with the given code and
// optionally renames it. The update only applies while the row is still
// personal; nil, nil means another request converted it first.
func (e *Elevated) MakeJoinable(ctx context.Context, id uuid.UUID, code string, name *string) (*model.Household, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	set := []string{"is_personal = 0", "invite_code = ?"}
	args := []any{code}
	if name != nil {
		set = append(set, "name = ?")
		args = append(args, *name)
	}
	args = append(args, id)

	row := e.db.QueryRowContext(ctx,
		`UPDATE households SET `+strings.Join(set, ", ")+` WHERE id = ? AND is_personal = 1
		 RETURNING id, name, invite_code, is_personal, owner_id, created_at`,
		args...,
	)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, writeErr("convert household", err)
	}
	return h, nil
}

// Household returns the household only if the caller is currently a member.
func (r *Restricted) Household(ctx context.Context, id uuid.UUID) (*model.Household, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+householdCols+` FROM households h WHERE h.id = ? AND `+fmt.Sprintf(memberOf, "h.id"),
		id, r.userID,
	)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}
