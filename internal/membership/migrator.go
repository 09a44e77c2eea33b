package membership

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type itemMover interface {
	ReassignPantryItems(ctx context.Context, ownerID, from, to uuid.UUID) (int64, error)
	ReclaimStrandedPantryItems(ctx context.Context, ownerID, to uuid.UUID) (int64, error)
	SettlePantryItems(ctx context.Context, ownerID, householdID uuid.UUID) (int64, error)
}

// Migrator re-associates a user's pantry items with a new household. Items
// owned by other users are never touched.
type Migrator struct {
	items  itemMover
	logger *slog.Logger
}

func NewMigrator(items itemMover, logger *slog.Logger) *Migrator {
	return &Migrator{items: items, logger: logger.With("component", "migrator")}
}

// MigrateItems moves every item owner has in from into to and returns how
// many rows changed. It also sweeps in the owner's items stranded in any
// household other than the current one, which is where an interrupted or
// outraced transition leaves them. Running it again after success moves
// nothing.
func (m *Migrator) MigrateItems(ctx context.Context, owner, from, to uuid.UUID) (int64, error) {
	if from == to {
		return 0, nil
	}

	moved, err := m.items.ReassignPantryItems(ctx, owner, from, to)
	if err != nil {
		return 0, dependency("migrate items", err)
	}

	reclaimed, err := m.items.ReclaimStrandedPantryItems(ctx, owner, to)
	if err != nil {
		return moved, dependency("reclaim stranded items", err)
	}
	if reclaimed > 0 {
		m.logger.Info("reclaimed stranded items", "user_id", owner, "to", to, "count", reclaimed)
	}
	return moved + reclaimed, nil
}

// Settle runs after a successful switch to to. It pulls in any item a
// competing transition moved elsewhere while this one was in flight, and
// moves nothing if the membership no longer points at to.
func (m *Migrator) Settle(ctx context.Context, owner, to uuid.UUID) (int64, error) {
	n, err := m.items.SettlePantryItems(ctx, owner, to)
	if err != nil {
		return 0, dependency("settle items", err)
	}
	if n > 0 {
		m.logger.Info("settled items after switch", "user_id", owner, "to", to, "count", n)
	}
	return n, nil
}
