package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:"

// RateLimitStore counts requests in fixed windows so every API
// instance shares the same view of a caller's budget.
type RateLimitStore struct {
	client *goredis.Client
}

// NewRateLimitStore builds a store on the shared Redis client.
func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// RateLimitResult reports the outcome of a single check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp of the next window
}

// Allow counts one request against key's current window and reports
// whether it fits under limit. Windows are discrete: the counter key
// embeds time divided by the window length, so a new window starts
// with a fresh counter.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	windowSecs := int64(window.Seconds())
	windowID := time.Now().Unix() / windowSecs
	counterKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowID)

	count, err := s.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit incr %q: %w", key, err)
	}
	if count == 1 {
		// First hit in this window. The extra second keeps the key alive
		// through clock skew between the API and Redis.
		s.client.Expire(ctx, counterKey, window+time.Second)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   (windowID + 1) * windowSecs,
	}, nil
}
