package membership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
	"github.com/google/uuid"
)

type memberWriter interface {
	Membership(ctx context.Context, userID uuid.UUID) (*model.HouseholdMember, error)
	DeleteMembership(ctx context.Context, userID, householdID uuid.UUID) (int64, error)
	InsertMembership(ctx context.Context, userID, householdID uuid.UUID) (*model.HouseholdMember, error)
}

// Switcher replaces a user's membership row. The UNIQUE constraint on
// household_members.user_id decides between concurrent switches.
type Switcher struct {
	members memberWriter
	logger  *slog.Logger
}

func NewSwitcher(members memberWriter, logger *slog.Logger) *Switcher {
	return &Switcher{members: members, logger: logger.With("component", "switcher")}
}

// Switch moves the user's membership from the household the caller resolved
// to to. It only ever deletes a row that still points at from; if another
// transition has moved the user somewhere else in the meantime it returns
// concurrent_membership_change. Calling it again once it has succeeded is a
// no-op.
func (s *Switcher) Switch(ctx context.Context, userID, from, to uuid.UUID) error {
	existing, err := s.members.Membership(ctx, userID)
	if err != nil {
		return dependency("read membership", err)
	}
	if existing != nil {
		switch existing.HouseholdID {
		case to:
			return nil
		case from:
		default:
			return s.lost(userID, to, existing.HouseholdID)
		}
	}

	n, err := s.members.DeleteMembership(ctx, userID, from)
	if err != nil {
		return dependency("delete membership", err)
	}
	if n == 0 {
		// The row changed between the read and the delete.
		current, err := s.members.Membership(ctx, userID)
		if err != nil {
			return dependency("re-read membership", err)
		}
		if current != nil {
			if current.HouseholdID == to {
				return nil
			}
			return s.lost(userID, to, current.HouseholdID)
		}
	}

	for attempt := 1; attempt <= 2; attempt++ {
		_, err := s.members.InsertMembership(ctx, userID, to)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return dependency("insert membership", err)
		}

		// Someone else inserted a row for this user between our delete and
		// insert. It only counts as success if it is the row we wanted.
		winner, err := s.members.Membership(ctx, userID)
		if err != nil {
			return dependency("re-read membership", err)
		}
		if winner != nil {
			if winner.HouseholdID == to {
				return nil
			}
			return s.lost(userID, to, winner.HouseholdID)
		}
	}
	return conflict(ReasonConcurrentChange)
}

func (s *Switcher) lost(userID, wanted, got uuid.UUID) error {
	s.logger.Warn("lost membership race", "user_id", userID, "wanted", wanted, "got", got)
	return conflict(ReasonConcurrentChange)
}
