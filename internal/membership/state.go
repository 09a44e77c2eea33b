package membership

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type state string

const (
	stateIdle               state = "idle"
	stateResolved           state = "resolved"
	stateItemsMigrated      state = "items_migrated"
	stateMembershipSwitched state = "membership_switched"
	stateDone               state = "done"
	stateFailed             state = "failed"
)

// transition tracks one operation through the pipeline. It exists only for
// the lifetime of the request.
type transition struct {
	state  state
	logger *slog.Logger
}

func (s *Service) begin(op string, userID uuid.UUID) *transition {
	return &transition{
		state:  stateIdle,
		logger: s.logger.With("op", op, "user_id", userID),
	}
}

func (t *transition) advance(next state, args ...any) {
	t.logger.Debug("transition", append([]any{"from", t.state, "to", next}, args...)...)
	t.state = next
}

func (t *transition) fail(err error) error {
	level := slog.LevelInfo
	if IsKind(err, KindDependency) || IsKind(err, KindExhausted) {
		level = slog.LevelError
	}
	t.logger.Log(context.Background(), level, "transition failed", "state", t.state, "reason", ReasonOf(err), "error", err)
	t.state = stateFailed
	return err
}
