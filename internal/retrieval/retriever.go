package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukerupert/larder/internal/model"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Searcher is the restricted-tier search the retriever fills the cache from.
type Searcher interface {
	SearchPantryItems(ctx context.Context, query string, limit int) ([]model.PantryItem, error)
}

type Retriever struct {
	cache  Cache
	group  singleflight.Group
	logger *slog.Logger
}

func NewRetriever(cache Cache, logger *slog.Logger) *Retriever {
	return &Retriever{cache: cache, logger: logger.With("component", "retrieval")}
}

// Search returns up to k pantry items in householdID whose name matches
// query. Concurrent identical searches share one store round trip.
func (r *Retriever) Search(ctx context.Context, s Searcher, householdID uuid.UUID, query string, k int) ([]model.PantryItem, error) {
	if k <= 0 {
		k = DefaultLimit
	}
	if k > MaxLimit {
		k = MaxLimit
	}
	gen, err := r.cache.Generation(ctx, householdID)
	if err != nil {
		r.logger.Warn("cache generation", "error", err)
		return r.search(ctx, s, query, k)
	}
	key := Key(householdID, gen, query, k)

	if raw, ok, err := r.cache.Get(ctx, householdID, key); err != nil {
		r.logger.Warn("cache get", "error", err)
	} else if ok {
		var items []model.PantryItem
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		items, err := s.SearchPantryItems(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("search pantry items: %w", err)
		}

		if !within(items, householdID) {
			return items, nil
		}

		// An invalidation that landed during the search makes these rows
		// stale for everyone who asks from now on.
		if now, err := r.cache.Generation(ctx, householdID); err != nil || now != gen {
			return items, nil
		}

		raw, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("marshal search results: %w", err)
		}
		if err := r.cache.Set(ctx, householdID, key, raw); err != nil {
			r.logger.Warn("cache set", "error", err)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	// The searcher is scoped by the live membership of whoever led the
	// flight. If that moved since householdID was read, the rows belong to
	// another household and are neither cached nor shared.
	items := v.([]model.PantryItem)
	if !within(items, householdID) {
		return r.search(ctx, s, query, k)
	}
	return items, nil
}

func (r *Retriever) search(ctx context.Context, s Searcher, query string, k int) ([]model.PantryItem, error) {
	items, err := s.SearchPantryItems(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search pantry items: %w", err)
	}
	return items, nil
}

func within(items []model.PantryItem, householdID uuid.UUID) bool {
	for _, it := range items {
		if it.HouseholdID != householdID {
			return false
		}
	}
	return true
}

// InvalidateHousehold drops every cached search for the household.
func (r *Retriever) InvalidateHousehold(ctx context.Context, householdID uuid.UUID) error {
	return r.cache.InvalidateHousehold(ctx, householdID)
}
