package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
)

// redisClient is the subset of *redis.Client the store needs.
type redisClient interface {
	Pipeline() redis.Pipeliner
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisStore implements Store on Redis lists and sets. Ledger entries live in
// a trimmed list per identity; method bindings live in an expiring set per
// fingerprint.
type RedisStore struct {
	client redisClient
}

// NewRedisStore creates a Redis-backed ledger store.
func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client}
}

func ledgerKey(identityKey string) string {
	return fmt.Sprintf("ledger:%s", identityKey)
}

func methodKey(fingerprint string) string {
	return fmt.Sprintf("method:%s", fingerprint)
}

func (s *RedisStore) Append(ctx context.Context, identityKey string, attempt *models.PaymentAttempt, maxEntries int, ttl time.Duration) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal ledger entry")
	}

	key := ledgerKey(identityKey)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	if maxEntries > 0 {
		pipe.LTrim(ctx, key, 0, int64(maxEntries-1))
	}
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "ledger append")
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, identityKey string, limit int) ([]*models.PaymentAttempt, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := s.client.LRange(ctx, ledgerKey(identityKey), 0, stop).Result()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "ledger range")
	}

	attempts := make([]*models.PaymentAttempt, 0, len(raw))
	for _, item := range raw {
		var attempt models.PaymentAttempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			// Skip unreadable entries rather than failing the whole read; a
			// single corrupt record must not take classification down.
			continue
		}
		attempts = append(attempts, &attempt)
	}
	return attempts, nil
}

func (s *RedisStore) BindMethod(ctx context.Context, methodFingerprint, identityKey string, ttl time.Duration) (int64, error) {
	key := methodKey(methodFingerprint)
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, identityKey)
	pipe.Expire(ctx, key, ttl)
	card := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "ledger bind method")
	}
	return card.Val(), nil
}
