package membership

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/invite"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
	"github.com/dukerupert/larder/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnReset = errors.New("connection reset by peer")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyElevated wraps the real elevated tier and fails selected calls.
type faultyElevated struct {
	*store.Elevated

	mu              sync.Mutex
	deleteFailures  int
	reassignFailure error
	alwaysDuplicate bool
	beforeReassign  func()
}

func (f *faultyElevated) DeleteMembership(ctx context.Context, userID, householdID uuid.UUID) (int64, error) {
	f.mu.Lock()
	if f.deleteFailures > 0 {
		f.deleteFailures--
		f.mu.Unlock()
		return 0, errConnReset
	}
	f.mu.Unlock()
	return f.Elevated.DeleteMembership(ctx, userID, householdID)
}

func (f *faultyElevated) ReassignPantryItems(ctx context.Context, ownerID, from, to uuid.UUID) (int64, error) {
	f.mu.Lock()
	hook, fail := f.beforeReassign, f.reassignFailure
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if fail != nil {
		return 0, fail
	}
	return f.Elevated.ReassignPantryItems(ctx, ownerID, from, to)
}

func (f *faultyElevated) CreateHousehold(ctx context.Context, nh store.NewHousehold) (*model.Household, error) {
	if f.alwaysDuplicate {
		return nil, store.ErrDuplicate
	}
	return f.Elevated.CreateHousehold(ctx, nh)
}

func (f *faultyElevated) MakeJoinable(ctx context.Context, id uuid.UUID, code string, name *string) (*model.Household, error) {
	if f.alwaysDuplicate {
		return nil, store.ErrDuplicate
	}
	return f.Elevated.MakeJoinable(ctx, id, code, name)
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
	err         error
}

func (c *recordingCache) InvalidateHousehold(ctx context.Context, householdID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, householdID)
	return c.err
}

type broadcast struct {
	householdID uuid.UUID
	msg         websocket.Message
}

type recordingNotifier struct {
	mu         sync.Mutex
	broadcasts []broadcast
	relocated  map[uuid.UUID]uuid.UUID
}

func (n *recordingNotifier) BroadcastTo(householdID uuid.UUID, msg websocket.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, broadcast{householdID, msg})
}

func (n *recordingNotifier) Relocate(userID, householdID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.relocated == nil {
		n.relocated = make(map[uuid.UUID]uuid.UUID)
	}
	n.relocated[userID] = householdID
}

type harness struct {
	el     *store.Elevated
	gw     *store.Gateway
	faults *faultyElevated
	svc    *Service
	cache  *recordingCache
	notes  *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		el:    store.NewElevated(db, 0),
		gw:    store.NewGateway(db, 0),
		cache: &recordingCache{},
		notes: &recordingNotifier{},
	}
	h.faults = &faultyElevated{Elevated: h.el}
	logger := discardLogger()
	h.svc = NewService(h.gw, h.faults, invite.NewGenerator(logger), h.cache, h.notes, logger)
	return h
}

// signup creates a user with a personal household and returns the user id
// and that household id.
func (h *harness) signup(t *testing.T, email string) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := h.el.EnsureUser(ctx, id, email)
	require.NoError(t, err)
	m, err := h.el.Membership(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return id, m.HouseholdID
}

// sharedHousehold signs up an owner and converts their household so others
// can join it.
func (h *harness) sharedHousehold(t *testing.T, name string) (uuid.UUID, *model.Household) {
	t.Helper()
	owner, _ := h.signup(t, name+"-owner@example.com")
	house, err := h.svc.Convert(context.Background(), owner, &name)
	require.NoError(t, err)
	require.NotNil(t, house.InviteCode)
	return owner, house
}

func (h *harness) addItems(t *testing.T, user uuid.UUID, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := h.gw.As(user).AddPantryItem(context.Background(), model.NewPantryItem{
			Name: name, Category: "Other", Quantity: 1,
		})
		require.NoError(t, err)
	}
}

func (h *harness) householdOf(t *testing.T, user uuid.UUID) uuid.UUID {
	t.Helper()
	m, err := h.el.Membership(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, m, "user has no membership")
	return m.HouseholdID
}

// assertItemsFollowOwner checks that every item the user owns sits in the
// user's current household.
func (h *harness) assertItemsFollowOwner(t *testing.T, user uuid.UUID) {
	t.Helper()
	home := h.householdOf(t, user)
	items, err := h.el.PantryItemsByOwner(context.Background(), user)
	require.NoError(t, err)
	for _, it := range items {
		assert.Equal(t, home, it.HouseholdID, "item %q left behind", it.Name)
	}
}

func (h *harness) itemCountIn(t *testing.T, user, householdID uuid.UUID) int {
	t.Helper()
	items, err := h.el.PantryItemsByOwner(context.Background(), user)
	require.NoError(t, err)
	n := 0
	for _, it := range items {
		if it.HouseholdID == householdID {
			n++
		}
	}
	return n
}
