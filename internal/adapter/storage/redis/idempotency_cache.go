package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idem:"

// IdempotencyCache remembers the outcome of operations that external
// systems may replay, such as gateway deposit confirmations. Entries
// expire on their own; the database remains the source of truth.
type IdempotencyCache struct {
	client *goredis.Client
}

// NewIdempotencyCache builds a cache on the shared Redis client.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns the cached outcome for key, or nil, nil when none exists.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency cache get %q: %w", key, err)
	}
	return val, nil
}

// Set records an outcome under key for the given TTL, replacing any
// previous value.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, idempotencyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency cache set %q: %w", key, err)
	}
	return nil
}
