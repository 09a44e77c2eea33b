package retrieval

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSearcher struct {
	calls  atomic.Int32
	items  []model.PantryItem
	gate   chan struct{}
	during func()
}

func (s *countingSearcher) SearchPantryItems(ctx context.Context, query string, limit int) ([]model.PantryItem, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.during != nil {
		s.during()
	}
	return s.items, nil
}

func testRetriever(c Cache) *Retriever {
	return NewRetriever(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestKeyNormalizesQuery(t *testing.T) {
	house := uuid.New()
	assert.Equal(t, Key(house, 0, "Oat  Milk", 10), Key(house, 0, " oat milk ", 10))
	assert.NotEqual(t, Key(house, 0, "milk", 10), Key(house, 0, "milk", 5))
	assert.NotEqual(t, Key(house, 0, "milk", 10), Key(uuid.New(), 0, "milk", 10))
	assert.NotEqual(t, Key(house, 0, "milk", 10), Key(house, 1, "milk", 10))
	assert.Len(t, Key(house, 0, "milk", 10), 32)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	house := uuid.New()

	require.NoError(t, c.Set(ctx, house, "k", []byte("v")))
	got, ok, err := c.Get(ctx, house, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, house, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCachePrune(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, uuid.New(), "a", []byte("1")))
	require.NoError(t, c.Set(ctx, uuid.New(), "b", []byte("2")))
	now = now.Add(30 * time.Second)
	require.NoError(t, c.Set(ctx, uuid.New(), "c", []byte("3")))

	now = now.Add(45 * time.Second)
	assert.Equal(t, 2, c.Prune())
	assert.Len(t, c.entries, 1)
}

func TestInvalidateHouseholdIsScoped(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, c.Set(ctx, a, "k", []byte("a")))
	require.NoError(t, c.Set(ctx, b, "k", []byte("b")))
	require.NoError(t, c.InvalidateHousehold(ctx, a))

	_, ok, _ := c.Get(ctx, a, "k")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, b, "k")
	assert.True(t, ok)

	gen, err := c.Generation(ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)
	gen, err = c.Generation(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, gen)
}

func TestSearchDropsFillRacingInvalidation(t *testing.T) {
	ctx := context.Background()
	house := uuid.New()
	c := NewMemoryCache(time.Minute)
	r := testRetriever(c)
	s := &countingSearcher{items: []model.PantryItem{{ID: uuid.New(), HouseholdID: house, Name: "Milk"}}}

	// A member leaves and takes the item while the first search is reading.
	s.during = func() {
		s.during = nil
		require.NoError(t, r.InvalidateHousehold(ctx, house))
	}
	items, err := r.Search(ctx, s, house, "milk", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	s.items = nil
	items, err = r.Search(ctx, s, house, "milk", 10)
	require.NoError(t, err)
	assert.Empty(t, items, "rows read before the invalidation are not served")
	assert.EqualValues(t, 2, s.calls.Load())
}

func TestSearchServesFromCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	house := uuid.New()
	s := &countingSearcher{items: []model.PantryItem{{ID: uuid.New(), HouseholdID: house, Name: "Milk"}}}
	r := testRetriever(NewMemoryCache(time.Minute))

	for range 3 {
		items, err := r.Search(ctx, s, house, "milk", 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Milk", items[0].Name)
	}
	assert.EqualValues(t, 1, s.calls.Load())

	require.NoError(t, r.InvalidateHousehold(ctx, house))
	_, err := r.Search(ctx, s, house, "milk", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.calls.Load())
}

func TestSearchDoesNotCacheForeignRows(t *testing.T) {
	ctx := context.Background()
	house := uuid.New()
	s := &countingSearcher{items: []model.PantryItem{{ID: uuid.New(), HouseholdID: uuid.New(), Name: "Milk"}}}
	r := testRetriever(NewMemoryCache(time.Minute))

	_, err := r.Search(ctx, s, house, "milk", 10)
	require.NoError(t, err)
	_, err = r.Search(ctx, s, house, "milk", 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.calls.Load(), int32(2))
}

func TestSearchCoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	house := uuid.New()
	s := &countingSearcher{
		items: []model.PantryItem{{ID: uuid.New(), HouseholdID: house, Name: "Rice"}},
		gate:  make(chan struct{}),
	}
	r := testRetriever(NewMemoryCache(time.Minute))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := r.Search(ctx, s, house, "rice", 10)
			assert.NoError(t, err)
			assert.Len(t, items, 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(s.gate)
	wg.Wait()

	assert.EqualValues(t, 1, s.calls.Load())
}

func TestRedisCacheKeyLayout(t *testing.T) {
	c := &RedisCache{prefix: "larder"}
	house := uuid.MustParse("11111111-2222-4333-8444-555555555555")

	assert.Equal(t, "larder:retrieval:11111111-2222-4333-8444-555555555555:abc", c.entryKey(house, "abc"))
	assert.Equal(t, "larder:retrieval:11111111-2222-4333-8444-555555555555:keys", c.indexKey(house))
	assert.Equal(t, "larder:retrieval:11111111-2222-4333-8444-555555555555:gen", c.genKey(house))
}

func TestNewRedisCacheRequiresAddr(t *testing.T) {
	_, err := NewRedisCache("", "larder", time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
