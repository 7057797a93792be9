package cooldown

import (
	"context"
	"sync"
	"time"

	"turnstile/pkg/clock"
)

// InMemoryStore implements Store with a mutex-guarded map. For production,
// use RedisStore instead.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]record
	clock   clock.Clock
}

type record struct {
	at        time.Time
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

// NewInMemoryStore creates an in-memory cooldown store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]record),
		clock:   clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) LastTriggered(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.entries[key]
	if !ok || !s.clock.Now().Before(r.expiresAt) {
		return time.Time{}, false, nil
	}
	return r.at, true, nil
}

func (s *InMemoryStore) SetTriggered(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = record{at: at, expiresAt: s.clock.Now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Sweep removes expired records, returning how many were dropped.
func (s *InMemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, r := range s.entries {
		if !now.Before(r.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}
