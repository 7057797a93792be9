package cooldown

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "turnstile/pkg/domain-errors"
)

// redisClient is the subset of *redis.Client the store needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore implements Store on plain Redis strings holding unix
// nanoseconds. Record expiry rides on key TTLs.
type RedisStore struct {
	client redisClient
}

// NewRedisStore creates a Redis-backed cooldown store.
func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) LastTriggered(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "cooldown get")
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "cooldown record corrupt")
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

func (s *RedisStore) SetTriggered(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, at.UnixNano(), ttl).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "cooldown set")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "cooldown clear")
	}
	return nil
}
