// Package membership moves users and the pantry items they own between
// households.
//
// Every transition runs as a fixed pipeline: resolve, migrate items, switch
// membership, then invalidate caches and notify. No step is wrapped in a
// transaction. Each step is idempotent, so a request that fails part way is
// repaired by sending it again. The switch only replaces the membership row
// the transition resolved, so of two overlapping transitions for one user at
// most one wins, and the winner pulls in whatever items the loser moved.
package membership

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/larder/internal/invite"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
	"github.com/dukerupert/larder/internal/websocket"
	"github.com/google/uuid"
)

const maxHouseholdNameLength = 100

const leftMessage = "Left household and switched to personal household"

// Elevated is the privileged store surface the service needs.
type Elevated interface {
	targetFinder
	itemMover
	memberWriter
	CreateHousehold(ctx context.Context, nh store.NewHousehold) (*model.Household, error)
	MakeJoinable(ctx context.Context, id uuid.UUID, code string, name *string) (*model.Household, error)
}

// Invalidator drops cached reads scoped to a household.
type Invalidator interface {
	InvalidateHousehold(ctx context.Context, householdID uuid.UUID) error
}

// Notifier delivers realtime events to household members.
type Notifier interface {
	BroadcastTo(householdID uuid.UUID, msg websocket.Message)
	Relocate(userID, householdID uuid.UUID)
}

type JoinResult struct {
	Household  *model.Household `json:"household"`
	ItemsMoved int64            `json:"items_moved"`
}

type LeaveResult struct {
	Message          string    `json:"message"`
	ItemsMoved       int64     `json:"items_moved"`
	NewHouseholdID   uuid.UUID `json:"new_household_id"`
	NewHouseholdName string    `json:"new_household_name"`
}

type HouseholdView struct {
	Household   *model.Household `json:"household"`
	MemberCount int              `json:"member_count"`
}

type Service struct {
	gateway  *store.Gateway
	elevated Elevated
	resolver *Resolver
	migrator *Migrator
	switcher *Switcher
	codes    *invite.Generator
	cache    Invalidator
	notifier Notifier
	logger   *slog.Logger
}

// NewService wires the pipeline. cache and notifier may be nil.
func NewService(gw *store.Gateway, el Elevated, codes *invite.Generator, cache Invalidator, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		gateway:  gw,
		elevated: el,
		resolver: NewResolver(el, logger),
		migrator: NewMigrator(el, logger),
		switcher: NewSwitcher(el, logger),
		codes:    codes,
		cache:    cache,
		notifier: notifier,
		logger:   logger.With("component", "membership"),
	}
}

// Current returns the caller's household and how many members it has.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*HouseholdView, error) {
	rs := s.gateway.As(userID)
	cur, err := s.resolver.Current(ctx, rs)
	if err != nil {
		return nil, err
	}
	members, err := rs.ListMembers(ctx)
	if err != nil {
		return nil, dependency("list members", err)
	}
	return &HouseholdView{Household: cur.Household, MemberCount: len(members)}, nil
}

// Join moves the caller and their items into the household behind code.
func (s *Service) Join(ctx context.Context, userID uuid.UUID, code string) (*JoinResult, error) {
	t := s.begin("join", userID)

	cur, target, err := s.resolver.ForJoin(ctx, s.gateway.As(userID), code)
	if err != nil {
		return nil, t.fail(err)
	}
	t.advance(stateResolved, "from", cur.HouseholdID, "to", target.ID)

	moved, err := s.migrator.MigrateItems(ctx, userID, cur.HouseholdID, target.ID)
	if err != nil {
		return nil, t.fail(err)
	}
	t.advance(stateItemsMigrated, "items_moved", moved)

	if err := s.switcher.Switch(ctx, userID, cur.HouseholdID, target.ID); err != nil {
		return nil, t.fail(err)
	}
	moved += s.settleItems(ctx, userID, target.ID)
	t.advance(stateMembershipSwitched)

	s.announce(ctx, userID, cur.HouseholdID, target.ID)
	t.advance(stateDone)

	return &JoinResult{Household: target, ItemsMoved: moved}, nil
}

// Leave moves the caller and their items out of a joinable household into a
// brand new personal one.
func (s *Service) Leave(ctx context.Context, userID uuid.UUID) (*LeaveResult, error) {
	t := s.begin("leave", userID)

	cur, err := s.resolver.ForLeave(ctx, s.gateway.As(userID))
	if err != nil {
		return nil, t.fail(err)
	}

	var personal *model.Household
	_, err = s.codes.Claim(ctx, func(ctx context.Context, code string) error {
		h, err := s.elevated.CreateHousehold(ctx, store.NewHousehold{
			Name:       model.DefaultPersonalHouseholdName,
			OwnerID:    userID,
			InviteCode: &code,
			Personal:   true,
		})
		if err != nil {
			return err
		}
		personal = h
		return nil
	})
	if err != nil {
		return nil, t.fail(claimError("create personal household", err))
	}
	t.advance(stateResolved, "from", cur.HouseholdID, "to", personal.ID)

	moved, err := s.migrator.MigrateItems(ctx, userID, cur.HouseholdID, personal.ID)
	if err != nil {
		return nil, t.fail(err)
	}
	t.advance(stateItemsMigrated, "items_moved", moved)

	if err := s.switcher.Switch(ctx, userID, cur.HouseholdID, personal.ID); err != nil {
		return nil, t.fail(err)
	}
	moved += s.settleItems(ctx, userID, personal.ID)
	t.advance(stateMembershipSwitched)

	s.announce(ctx, userID, cur.HouseholdID, personal.ID)
	t.advance(stateDone)

	return &LeaveResult{
		Message:          leftMessage,
		ItemsMoved:       moved,
		NewHouseholdID:   personal.ID,
		NewHouseholdName: personal.Name,
	}, nil
}

// Convert turns the caller's personal household into a joinable one with a
// fresh invite code. A nil or blank name keeps the current name.
func (s *Service) Convert(ctx context.Context, userID uuid.UUID, name *string) (*model.Household, error) {
	t := s.begin("convert", userID)

	name, err := normalizeName(name)
	if err != nil {
		return nil, t.fail(err)
	}

	cur, err := s.resolver.ForConvert(ctx, s.gateway.As(userID), userID)
	if err != nil {
		return nil, t.fail(err)
	}
	t.advance(stateResolved, "household_id", cur.HouseholdID)

	var converted *model.Household
	_, err = s.codes.Claim(ctx, func(ctx context.Context, code string) error {
		h, err := s.elevated.MakeJoinable(ctx, cur.HouseholdID, code, name)
		if err != nil {
			return err
		}
		if h == nil {
			return conflict(ReasonNotPersonal)
		}
		converted = h
		return nil
	})
	if err != nil {
		return nil, t.fail(claimError("convert household", err))
	}

	s.invalidate(ctx, converted.ID)
	if s.notifier != nil {
		s.notifier.BroadcastTo(converted.ID, websocket.NewMessage("household", "converted", converted.ID, map[string]any{
			"name": converted.Name,
		}))
	}
	t.advance(stateDone)

	return converted, nil
}

// settleItems pulls in items a competing transition moved while this one was
// in flight. A failure is logged only: the membership has already changed,
// and the reclaim step of the user's next transition picks the items up.
func (s *Service) settleItems(ctx context.Context, userID, to uuid.UUID) int64 {
	n, err := s.migrator.Settle(ctx, userID, to)
	if err != nil {
		s.logger.Error("settle items", "user_id", userID, "household_id", to, "error", err)
	}
	return n
}

// announce runs the post-switch side effects. None of them can fail the
// operation: the membership change has already happened.
func (s *Service) announce(ctx context.Context, userID, from, to uuid.UUID) {
	s.invalidate(ctx, from)
	s.invalidate(ctx, to)

	if s.notifier == nil || from == to {
		return
	}
	s.notifier.Relocate(userID, to)
	s.notifier.BroadcastTo(from, websocket.NewMessage("household_member", "left", userID, nil))
	s.notifier.BroadcastTo(to, websocket.NewMessage("household_member", "joined", userID, nil))
}

func (s *Service) invalidate(ctx context.Context, householdID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateHousehold(ctx, householdID); err != nil {
		s.logger.Warn("invalidate retrieval cache", "household_id", householdID, "error", err)
	}
}

func claimError(op string, err error) error {
	if errors.Is(err, invite.ErrExhausted) {
		return newError(KindExhausted, ReasonInviteCodesExhausted, err)
	}
	return dependency(op, err)
}

func normalizeName(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxHouseholdNameLength {
		return nil, invalid(ReasonInvalidName)
	}
	return &trimmed, nil
}
