// Package counter provides the window counter store behind the rate limiter.
// Counters are keyed by the formatted models.RateLimitKey string and expire
// with their calendar bucket.
package counter

import (
	"context"
	"time"
)

// Store is the window counter persistence contract.
//
// CheckAndIncr is the hot-path operation: it increments the counter for key
// unless the current count already meets limit, in which case the count is
// returned unchanged and allowed is false. The TTL is applied only when the
// increment creates the counter, so a bucket's expiry is anchored to its
// first request.
type Store interface {
	CheckAndIncr(ctx context.Context, key string, limit int64, ttl time.Duration) (count int64, allowed bool, err error)

	// Get returns the current count for key, 0 when absent or expired.
	Get(ctx context.Context, key string) (int64, error)

	// Reset removes the counter for key.
	Reset(ctx context.Context, key string) error
}
