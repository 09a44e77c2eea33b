package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
)

// RedisCache shares cached results between processes. Each household has a
// generation counter and a set listing its live keys so invalidation does not
// need SCAN.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(addr, prefix string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "retrieval_redis"),
	}, nil
}

func (c *RedisCache) entryKey(householdID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:retrieval:%s:%s", c.prefix, householdID, key)
}

func (c *RedisCache) indexKey(householdID uuid.UUID) string {
	return fmt.Sprintf("%s:retrieval:%s:keys", c.prefix, householdID)
}

func (c *RedisCache) genKey(householdID uuid.UUID) string {
	return fmt.Sprintf("%s:retrieval:%s:gen", c.prefix, householdID)
}

func (c *RedisCache) Generation(ctx context.Context, householdID uuid.UUID) (uint64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey(householdID)).Uint64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) Get(ctx context.Context, householdID uuid.UUID, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, c.entryKey(householdID, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, householdID uuid.UUID, key string, value []byte) error {
	entry, index := c.entryKey(householdID, key), c.indexKey(householdID)

	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, entry, value, c.ttl)
		p.SAdd(ctx, index, entry)
		p.Expire(ctx, index, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateHousehold(ctx context.Context, householdID uuid.UUID) error {
	index := c.indexKey(householdID)

	gen, err := c.rdb.Incr(ctx, c.genKey(householdID)).Result()
	if err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}

	keys, err := c.rdb.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}
	if err := c.rdb.Del(ctx, append(keys, index)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	c.logger.Debug("invalidated household", "household_id", householdID, "generation", gen, "keys", len(keys))
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
