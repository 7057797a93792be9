package allowlist

import (
	"context"
	"sync"
	"time"

	"turnstile/internal/models"
	"turnstile/pkg/clock"
)

// InMemoryStore implements Store with a mutex-guarded map keyed by
// (type, identifier). For production, use PostgresStore instead.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[mapKey]*models.AllowlistEntry
	clock   clock.Clock
}

type mapKey struct {
	entryType  models.AllowlistEntryType
	identifier string
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides the time source, for tests.
func WithClock(c clock.Clock) MemoryOption {
	return func(s *InMemoryStore) {
		s.clock = c
	}
}

// NewInMemoryStore creates an in-memory allowlist store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[mapKey]*models.AllowlistEntry),
		clock:   clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Add(ctx context.Context, entry *models.AllowlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[mapKey{entry.Type, entry.Identifier}] = entry
	return nil
}

func (s *InMemoryStore) Remove(ctx context.Context, entryType models.AllowlistEntryType, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, mapKey{entryType, identifier})
	return nil
}

func (s *InMemoryStore) Match(ctx context.Context, identity models.Identity) (*models.AllowlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	candidates := []mapKey{
		{models.AllowlistTypeAPIKey, identity.APIKeyID},
		{models.AllowlistTypeUserID, identity.UserID},
		{models.AllowlistTypeIP, identity.IP},
	}

	for _, key := range candidates {
		if key.identifier == "" {
			continue
		}
		if entry, ok := s.entries[key]; ok && live(entry, now) {
			return entry, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]*models.AllowlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	out := make([]*models.AllowlistEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if live(entry, now) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func live(entry *models.AllowlistEntry, now time.Time) bool {
	return entry.ExpiresAt == nil || entry.ExpiresAt.After(now)
}

// Sweep removes expired entries, returning how many were dropped.
func (s *InMemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !live(entry, now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}
