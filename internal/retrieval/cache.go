// Package retrieval serves household-scoped pantry searches through a short
// lived cache. Every cached entry is filed under its household and that
// household's generation. Invalidating a household bumps the generation, so a
// fill that read the store before the bump is written under a key nobody
// looks up again.
package retrieval

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// DefaultTTL bounds how stale an entry can get if an invalidation is lost.
const DefaultTTL = 5 * time.Minute

// Cache stores opaque results per household.
type Cache interface {
	// Generation returns the household's invalidation counter.
	Generation(ctx context.Context, householdID uuid.UUID) (uint64, error)
	Get(ctx context.Context, householdID uuid.UUID, key string) ([]byte, bool, error)
	Set(ctx context.Context, householdID uuid.UUID, key string, value []byte) error
	InvalidateHousehold(ctx context.Context, householdID uuid.UUID) error
}

// Key digests a search so arbitrary user input never ends up in a cache key.
func Key(householdID uuid.UUID, gen uint64, query string, k int) string {
	norm := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%s\x00%d", householdID, gen, norm, k)))
	return hex.EncodeToString(sum[:16])
}
