package ledger

import (
	"context"
	"sync"
	"time"

	"turnstile/internal/models"
	"turnstile/pkg/clock"
)

// InMemoryStore implements Store with per-identity slices. For production,
// use RedisStore instead.
type InMemoryStore struct {
	mu      sync.RWMutex
	ledgers map[string]*identityLedger
	methods map[string]map[string]time.Time // fingerprint -> identity -> expiry
	clock   clock.Clock
}

type identityLedger struct {
	attempts  []*models.PaymentAttempt // newest first
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

// NewInMemoryStore creates an in-memory ledger store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		ledgers: make(map[string]*identityLedger),
		methods: make(map[string]map[string]time.Time),
		clock:   clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(ctx context.Context, identityKey string, attempt *models.PaymentAttempt, maxEntries int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	l, ok := s.ledgers[identityKey]
	if !ok || !now.Before(l.expiresAt) {
		l = &identityLedger{}
		s.ledgers[identityKey] = l
	}

	l.attempts = append([]*models.PaymentAttempt{attempt}, l.attempts...)
	if maxEntries > 0 && len(l.attempts) > maxEntries {
		l.attempts = l.attempts[:maxEntries]
	}
	l.expiresAt = now.Add(ttl)
	return nil
}

func (s *InMemoryStore) Recent(ctx context.Context, identityKey string, limit int) ([]*models.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[identityKey]
	if !ok || !s.clock.Now().Before(l.expiresAt) {
		return nil, nil
	}

	n := len(l.attempts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.PaymentAttempt, n)
	copy(out, l.attempts[:n])
	return out, nil
}

func (s *InMemoryStore) BindMethod(ctx context.Context, methodFingerprint, identityKey string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	identities, ok := s.methods[methodFingerprint]
	if !ok {
		identities = make(map[string]time.Time)
		s.methods[methodFingerprint] = identities
	}

	identities[identityKey] = now.Add(ttl)

	var count int64
	for id, expiry := range identities {
		if now.Before(expiry) {
			count++
		} else {
			delete(identities, id)
		}
	}
	return count, nil
}

// Sweep removes expired ledgers and method bindings, returning the number of
// entries dropped. Called by the cleanup worker; Redis expires keys natively.
func (s *InMemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, l := range s.ledgers {
		if !now.Before(l.expiresAt) {
			delete(s.ledgers, key)
			removed++
		}
	}
	for fp, identities := range s.methods {
		for id, expiry := range identities {
			if !now.Before(expiry) {
				delete(identities, id)
				removed++
			}
		}
		if len(identities) == 0 {
			delete(s.methods, fp)
		}
	}
	return removed, nil
}
