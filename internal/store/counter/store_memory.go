package counter

import (
	"context"
	"sync"
	"time"

	"turnstile/pkg/clock"
	platformsync "turnstile/pkg/platform/sync"
)

// InMemoryStore implements Store with an expiring map. Suitable for
// single-instance deployments and tests; production uses RedisStore.
type InMemoryStore struct {
	locks    *platformsync.ShardedMutex
	mu       sync.RWMutex // guards the map structure; locks guard per-key state
	counters map[string]*entry
	clock    clock.Clock
}

type entry struct {
	count     int64
	expiresAt time.Time
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides the time source, for tests.
func WithClock(c clock.Clock) MemoryOption {
	return func(s *InMemoryStore) {
		s.clock = c
	}
}

// NewInMemoryStore creates an in-memory counter store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		locks:    platformsync.NewShardedMutex(),
		counters: make(map[string]*entry),
		clock:    clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) CheckAndIncr(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	now := s.clock.Now()
	e := s.live(key, now)

	if e != nil && e.count >= limit {
		return e.count, false, nil
	}

	if e == nil {
		e = &entry{expiresAt: now.Add(ttl)}
		s.mu.Lock()
		s.counters[key] = e
		s.mu.Unlock()
	}
	e.count++
	return e.count, true, nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (int64, error) {
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	e := s.live(key, s.clock.Now())
	if e == nil {
		return 0, nil
	}
	return e.count, nil
}

func (s *InMemoryStore) Reset(ctx context.Context, key string) error {
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	s.mu.Lock()
	delete(s.counters, key)
	s.mu.Unlock()
	return nil
}

// live returns the entry for key if present and unexpired, dropping it otherwise.
// Callers must hold the key's shard lock.
func (s *InMemoryStore) live(key string, now time.Time) *entry {
	s.mu.RLock()
	e, ok := s.counters[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if !now.Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.counters, key)
		s.mu.Unlock()
		return nil
	}
	return e
}

// Sweep removes expired counters and returns how many were dropped.
// Called by the cleanup worker; Redis expires keys natively.
func (s *InMemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.counters {
		if !now.Before(e.expiresAt) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed, nil
}
