package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
)

// redisClient is the subset of *redis.Client the store needs.
type redisClient interface {
	Pipeline() redis.Pipeliner
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisStore implements Store on Redis lists (recent rings) and hashes
// (daily aggregates).
type RedisStore struct {
	client redisClient
}

// NewRedisStore creates a Redis-backed usage store.
func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client}
}

func recentKey(identityKey string) string {
	return fmt.Sprintf("usage:recent:%s", identityKey)
}

func aggKey(endpoint, day string) string {
	return fmt.Sprintf("usage:agg:%s:%s", endpoint, day)
}

func (s *RedisStore) AppendRecent(ctx context.Context, identityKey string, rec *models.UsageRecord, maxEntries int, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal usage record")
	}

	key := recentKey(identityKey)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	if maxEntries > 0 {
		pipe.LTrim(ctx, key, 0, int64(maxEntries-1))
	}
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "usage append")
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, identityKey string, limit int) ([]*models.UsageRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := s.client.LRange(ctx, recentKey(identityKey), 0, stop).Result()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "usage range")
	}

	records := make([]*models.UsageRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.UsageRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (s *RedisStore) IncrAggregate(ctx context.Context, rec *models.UsageRecord, ttl time.Duration) error {
	day := rec.At.UTC().Format("2006-01-02")
	key := aggKey(rec.Endpoint, day)

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, key, "requests", 1)
	if rec.Status >= 400 {
		pipe.HIncrBy(ctx, key, "errors", 1)
	}
	pipe.HIncrBy(ctx, key, "duration_ms", rec.Duration.Milliseconds())
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "usage aggregate incr")
	}
	return nil
}

func (s *RedisStore) AggregateFor(ctx context.Context, endpoint, day string) (*Aggregate, error) {
	fields, err := s.client.HGetAll(ctx, aggKey(endpoint, day)).Result()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "usage aggregate read")
	}

	agg := &Aggregate{Endpoint: endpoint, Day: day}
	agg.Requests = parseField(fields, "requests")
	agg.Errors = parseField(fields, "errors")
	agg.TotalDurationMS = parseField(fields, "duration_ms")
	return agg, nil
}

func parseField(fields map[string]string, name string) int64 {
	v, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
