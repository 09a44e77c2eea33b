package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned (wrapped) when a write is rejected by a UNIQUE or
// PRIMARY KEY constraint. Callers use it as the signal that a concurrent
// writer got there first.
var ErrDuplicate = errors.New("duplicate key")

// ErrNoHousehold is returned when the caller has no membership row to scope
// a write to.
var ErrNoHousehold = errors.New("caller has no household")

// DefaultTimeout bounds a single round trip when no timeout is configured.
const DefaultTimeout = 5 * time.Second

type scanner interface{ Scan(...any) error }

// conn is the shared plumbing of both credential tiers.
type conn struct {
	db      *sql.DB
	timeout time.Duration
}

func newConn(db *sql.DB, timeout time.Duration) conn {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return conn{db: db, timeout: timeout}
}

// bound applies the per-call timeout so a stalled query fails closed.
func (c conn) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// writeErr wraps a failed write, surfacing ErrDuplicate for constraint races.
func writeErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
