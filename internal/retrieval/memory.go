package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is the in-process Cache used when no redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]map[string]memoryEntry
	gens    map[uuid.UUID]uint64
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[uuid.UUID]map[string]memoryEntry),
		gens:    make(map[uuid.UUID]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Generation(_ context.Context, householdID uuid.UUID) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[householdID], nil
}

func (c *MemoryCache) Get(_ context.Context, householdID uuid.UUID, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[householdID][key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		delete(c.entries[householdID], key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, householdID uuid.UUID, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, ok := c.entries[householdID]
	if !ok {
		bucket = make(map[string]memoryEntry)
		c.entries[householdID] = bucket
	}
	bucket[key] = memoryEntry{value: value, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) InvalidateHousehold(_ context.Context, householdID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, householdID)
	c.gens[householdID]++
	c.mu.Unlock()
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (c *MemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, bucket := range c.entries {
		for key, e := range bucket {
			if now.After(e.expires) {
				delete(bucket, key)
				removed++
			}
		}
		if len(bucket) == 0 {
			delete(c.entries, id)
		}
	}
	return removed
}
