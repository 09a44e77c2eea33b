package membership

import (
	"context"
	"log/slog"

	"github.com/dukerupert/larder/internal/invite"
	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// memberReader is the restricted-tier view the resolver reads the caller's
// own state through.
type memberReader interface {
	Membership(ctx context.Context) (*model.HouseholdMember, error)
	Household(ctx context.Context, id uuid.UUID) (*model.Household, error)
}

// targetFinder resolves invite codes. It runs on the elevated tier because
// the caller is, by definition, not yet a member of the target.
type targetFinder interface {
	JoinableHouseholdByCode(ctx context.Context, code string) (*model.Household, error)
	IsPersonalCode(ctx context.Context, code string) (bool, error)
}

// Current is the caller's membership as read at the start of an operation.
type Current struct {
	HouseholdID uuid.UUID
	IsPersonal  bool
	OwnerID     uuid.UUID
	Household   *model.Household
}

// Resolver validates a requested transition against current state. It never
// writes.
type Resolver struct {
	targets targetFinder
	logger  *slog.Logger
}

func NewResolver(targets targetFinder, logger *slog.Logger) *Resolver {
	return &Resolver{targets: targets, logger: logger.With("component", "resolver")}
}

// Current reads the caller's membership and household.
func (r *Resolver) Current(ctx context.Context, rs memberReader) (Current, error) {
	m, err := rs.Membership(ctx)
	if err != nil {
		return Current{}, dependency("read membership", err)
	}
	if m == nil {
		r.logger.Error("user has no membership row", "fault", "data_integrity")
		return Current{}, notFound(ReasonMembershipMissing)
	}

	h, err := rs.Household(ctx, m.HouseholdID)
	if err != nil {
		return Current{}, dependency("read household", err)
	}
	if h == nil {
		r.logger.Error("membership points at missing household", "household_id", m.HouseholdID, "fault", "data_integrity")
		return Current{}, notFound(ReasonHouseholdMissing)
	}

	return Current{
		HouseholdID: h.ID,
		IsPersonal:  h.IsPersonal,
		OwnerID:     h.OwnerID,
		Household:   h,
	}, nil
}

// ForJoin resolves the caller's current household and the household behind
// code. Both lookups run concurrently.
func (r *Resolver) ForJoin(ctx context.Context, rs memberReader, code string) (Current, *model.Household, error) {
	code, ok := invite.Normalize(code)
	if !ok {
		return Current{}, nil, invalid(ReasonInvalidInviteCode)
	}

	var (
		cur    Current
		target *model.Household
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = r.Current(gctx, rs)
		return err
	})
	g.Go(func() error {
		var err error
		target, err = r.targets.JoinableHouseholdByCode(gctx, code)
		if err != nil {
			return dependency("find household by invite code", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Current{}, nil, err
	}

	if target == nil {
		personal, err := r.targets.IsPersonalCode(ctx, code)
		if err != nil {
			return Current{}, nil, dependency("classify invite code", err)
		}
		if personal {
			return Current{}, nil, conflict(ReasonTargetIsPersonal)
		}
		return Current{}, nil, notFound(ReasonInviteNotFound)
	}
	if target.ID == cur.HouseholdID {
		return Current{}, nil, conflict(ReasonAlreadyMember)
	}
	return cur, target, nil
}

// ForLeave requires the caller to be in a joinable household.
func (r *Resolver) ForLeave(ctx context.Context, rs memberReader) (Current, error) {
	cur, err := r.Current(ctx, rs)
	if err != nil {
		return Current{}, err
	}
	if cur.IsPersonal {
		return Current{}, conflict(ReasonAlreadyPersonal)
	}
	return cur, nil
}

// ForConvert requires the caller to own the personal household they are in.
func (r *Resolver) ForConvert(ctx context.Context, rs memberReader, userID uuid.UUID) (Current, error) {
	cur, err := r.Current(ctx, rs)
	if err != nil {
		return Current{}, err
	}
	if !cur.IsPersonal {
		return Current{}, conflict(ReasonNotPersonal)
	}
	if cur.OwnerID != userID {
		return Current{}, conflict(ReasonNotOwner)
	}
	return cur, nil
}
