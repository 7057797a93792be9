package counter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "turnstile/pkg/domain-errors"
)

// checkAndIncrScript increments the counter unless it already meets the limit,
// applying the TTL only on counter creation. A single round trip keeps the
// check-and-increment atomic across gateway instances.
var checkAndIncrScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return {current, 0}
end
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return {count, 1}
`)

// redisClient is the subset of *redis.Client the store needs.
type redisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore implements Store on Redis. Counter expiry rides on key TTLs, so
// no sweeping is needed.
type RedisStore struct {
	client redisClient
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) CheckAndIncr(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	ttlSeconds := int64(ttl.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	res, err := checkAndIncrScript.Run(ctx, s.client, []string{key}, limit, ttlSeconds).Int64Slice()
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "counter check-and-incr")
	}
	if len(res) != 2 {
		return 0, false, dErrors.New(dErrors.CodeStoreUnavailable, "counter script returned malformed reply")
	}
	return res[0], res[1] == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "counter get")
	}
	return count, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "counter reset")
	}
	return nil
}
