package usage

import (
	"context"
	"sync"
	"time"

	"turnstile/internal/models"
	"turnstile/pkg/clock"
)

// InMemoryStore implements Store with per-identity slices and a flat
// aggregate map. For production, use RedisStore instead.
type InMemoryStore struct {
	mu         sync.RWMutex
	rings      map[string]*ring
	aggregates map[string]*aggEntry // endpoint|day
	clock      clock.Clock
}

type ring struct {
	records   []*models.UsageRecord // newest first
	expiresAt time.Time
}

type aggEntry struct {
	agg       Aggregate
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

// NewInMemoryStore creates an in-memory usage store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		rings:      make(map[string]*ring),
		aggregates: make(map[string]*aggEntry),
		clock:      clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func aggMapKey(endpoint, day string) string {
	return endpoint + "|" + day
}

func (s *InMemoryStore) AppendRecent(ctx context.Context, identityKey string, rec *models.UsageRecord, maxEntries int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	r, ok := s.rings[identityKey]
	if !ok || !now.Before(r.expiresAt) {
		r = &ring{}
		s.rings[identityKey] = r
	}

	r.records = append([]*models.UsageRecord{rec}, r.records...)
	if maxEntries > 0 && len(r.records) > maxEntries {
		r.records = r.records[:maxEntries]
	}
	r.expiresAt = now.Add(ttl)
	return nil
}

func (s *InMemoryStore) Recent(ctx context.Context, identityKey string, limit int) ([]*models.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rings[identityKey]
	if !ok || !s.clock.Now().Before(r.expiresAt) {
		return nil, nil
	}

	n := len(r.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.UsageRecord, n)
	copy(out, r.records[:n])
	return out, nil
}

func (s *InMemoryStore) IncrAggregate(ctx context.Context, rec *models.UsageRecord, ttl time.Duration) error {
	day := rec.At.UTC().Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	key := aggMapKey(rec.Endpoint, day)
	e, ok := s.aggregates[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &aggEntry{agg: Aggregate{Endpoint: rec.Endpoint, Day: day}}
		s.aggregates[key] = e
	}

	e.agg.Requests++
	if rec.Status >= 400 {
		e.agg.Errors++
	}
	e.agg.TotalDurationMS += rec.Duration.Milliseconds()
	e.expiresAt = now.Add(ttl)
	return nil
}

func (s *InMemoryStore) AggregateFor(ctx context.Context, endpoint, day string) (*Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.aggregates[aggMapKey(endpoint, day)]
	if !ok || !s.clock.Now().Before(e.expiresAt) {
		return &Aggregate{Endpoint: endpoint, Day: day}, nil
	}
	agg := e.agg
	return &agg, nil
}

// Sweep removes expired rings and aggregates, returning how many were dropped.
func (s *InMemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, r := range s.rings {
		if !now.Before(r.expiresAt) {
			delete(s.rings, key)
			removed++
		}
	}
	for key, e := range s.aggregates {
		if !now.Before(e.expiresAt) {
			delete(s.aggregates, key)
			removed++
		}
	}
	return removed, nil
}
