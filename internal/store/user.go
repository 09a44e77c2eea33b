package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
)

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, email, created_at`

// EnsureUser records an authenticated user the first time they are seen.
// Inserting the row fires the signup trigger, which gives the user a personal
// household and membership. It reports whether the user was created.
func (e *Elevated) EnsureUser(ctx context.Context, id uuid.UUID, email string) (bool, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	result, err := e.db.ExecContext(ctx,
		`INSERT INTO users (id, email) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		id, email,
	)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (e *Elevated) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	row := e.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
