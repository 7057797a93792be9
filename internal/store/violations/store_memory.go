package violations

import (
	"context"
	"sort"
	"sync"

	"turnstile/internal/models"
)

// InMemoryStore implements Store with a mutex-guarded slice. Violations are
// compliance evidence, so production deployments use PostgresStore; this
// backing serves development and tests.
type InMemoryStore struct {
	mu         sync.RWMutex
	violations []*models.Violation
	byID       map[string]*models.Violation
}

// NewInMemoryStore creates an in-memory violation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID: make(map[string]*models.Violation),
	}
}

func (s *InMemoryStore) Insert(ctx context.Context, v *models.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.violations = append(s.violations, v)
	s.byID[v.ID] = v
	return nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id string) (*models.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *InMemoryStore) ListByIdentity(ctx context.Context, identityKey string, limit, offset int) ([]*models.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Violation
	for _, v := range s.violations {
		if v.Identity == identityKey {
			matched = append(matched, v)
		}
	}
	return page(matched, limit, offset), nil
}

func (s *InMemoryStore) ListRecent(ctx context.Context, limit, offset int) ([]*models.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.Violation, len(s.violations))
	copy(all, s.violations)
	return page(all, limit, offset), nil
}

// page sorts newest first and applies limit/offset.
func page(vs []*models.Violation, limit, offset int) []*models.Violation {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].OccurredAt.After(vs[j].OccurredAt)
	})

	if offset >= len(vs) {
		return nil
	}
	vs = vs[offset:]
	if limit > 0 && limit < len(vs) {
		vs = vs[:limit]
	}
	return vs
}
