package violations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/models"
	"turnstile/internal/store/violations"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *violations.InMemoryStore
	ctx   context.Context
	base  time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = violations.NewInMemoryStore()
	s.ctx = context.Background()
	s.base = time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) violation(userID string, vtype models.ViolationType, at time.Time) *models.Violation {
	v, err := models.NewViolation(vtype, models.Identity{UserID: userID}, "limit crossed", nil, at)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Insert(s.ctx, v))
	return v
}

// TestGetByID verifies inserted violations are retrievable and unknown IDs
// return ErrNotFound.
func (s *InMemoryStoreSuite) TestGetByID() {
	v := s.violation("u1", models.ViolationAmountExceeded, s.base)

	got, err := s.store.GetByID(s.ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(v.ID, got.ID)
	s.Equal(models.SeverityHigh, got.Severity)

	_, err = s.store.GetByID(s.ctx, "missing")
	s.ErrorIs(err, violations.ErrNotFound)
}

// TestListByIdentityNewestFirst verifies per-identity listing is isolated and
// ordered by occurrence time descending.
func (s *InMemoryStoreSuite) TestListByIdentityNewestFirst() {
	s.violation("u1", models.ViolationFrequencyExceeded, s.base)
	second := s.violation("u1", models.ViolationVelocityAnomaly, s.base.Add(time.Minute))
	s.violation("u2", models.ViolationAmountExceeded, s.base.Add(2*time.Minute))

	got, err := s.store.ListByIdentity(s.ctx, "user:u1", 10, 0)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(second.ID, got[0].ID)
}

// TestPaging verifies limit/offset paging over the recent listing.
func (s *InMemoryStoreSuite) TestPaging() {
	for i := 0; i < 5; i++ {
		s.violation("u1", models.ViolationFrequencyExceeded, s.base.Add(time.Duration(i)*time.Minute))
	}

	page1, err := s.store.ListRecent(s.ctx, 2, 0)
	s.Require().NoError(err)
	s.Len(page1, 2)

	page3, err := s.store.ListRecent(s.ctx, 2, 4)
	s.Require().NoError(err)
	s.Len(page3, 1)

	beyond, err := s.store.ListRecent(s.ctx, 2, 10)
	s.Require().NoError(err)
	s.Empty(beyond)
}
