package usage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/models"
	"turnstile/internal/store/usage"
	"turnstile/pkg/clock"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *usage.InMemoryStore
	clock *clock.Virtual
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.clock = clock.NewVirtual(time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC))
	s.store = usage.NewInMemoryStore(usage.WithClock(s.clock))
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) record(endpoint string, status int) *models.UsageRecord {
	rec, err := models.NewUsageRecord(models.Identity{UserID: "u1"}, endpoint, "GET", status, 25*time.Millisecond, s.clock.Now())
	s.Require().NoError(err)
	return rec
}

// ============================================================
// Recent ring
// ============================================================

// TestRingBoundedNewestFirst verifies the ring truncates to its capacity and
// reads newest first.
func (s *InMemoryStoreSuite) TestRingBoundedNewestFirst() {
	for i := 0; i < 5; i++ {
		rec := s.record("/v1/orders", 200+i)
		s.Require().NoError(s.store.AppendRecent(s.ctx, "user:u1", rec, 3, time.Hour))
	}

	got, err := s.store.Recent(s.ctx, "user:u1", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(204, got[0].Status)
	s.Equal(202, got[2].Status)
}

// TestRingExpires verifies the ring ages out after its TTL.
func (s *InMemoryStoreSuite) TestRingExpires() {
	s.Require().NoError(s.store.AppendRecent(s.ctx, "user:u1", s.record("/v1/orders", 200), 100, time.Hour))

	s.clock.Advance(2 * time.Hour)

	got, err := s.store.Recent(s.ctx, "user:u1", 10)
	s.Require().NoError(err)
	s.Empty(got)
}

// ============================================================
// Daily aggregates
// ============================================================

// TestAggregateFolding verifies requests, errors, and latency fold into the
// endpoint's daily counters.
func (s *InMemoryStoreSuite) TestAggregateFolding() {
	ttl := 30 * 24 * time.Hour
	s.Require().NoError(s.store.IncrAggregate(s.ctx, s.record("/v1/orders", 200), ttl))
	s.Require().NoError(s.store.IncrAggregate(s.ctx, s.record("/v1/orders", 500), ttl))
	s.Require().NoError(s.store.IncrAggregate(s.ctx, s.record("/v1/orders", 404), ttl))

	agg, err := s.store.AggregateFor(s.ctx, "/v1/orders", "2026-08-24")
	s.Require().NoError(err)
	s.Equal(int64(3), agg.Requests)
	s.Equal(int64(2), agg.Errors)
	s.Equal(int64(75), agg.TotalDurationMS)
}

// TestAggregateSeparatesDays verifies each UTC day gets its own counters.
func (s *InMemoryStoreSuite) TestAggregateSeparatesDays() {
	ttl := 30 * 24 * time.Hour
	s.Require().NoError(s.store.IncrAggregate(s.ctx, s.record("/v1/orders", 200), ttl))

	s.clock.Advance(24 * time.Hour)
	s.Require().NoError(s.store.IncrAggregate(s.ctx, s.record("/v1/orders", 200), ttl))

	first, err := s.store.AggregateFor(s.ctx, "/v1/orders", "2026-08-24")
	s.Require().NoError(err)
	s.Equal(int64(1), first.Requests)

	second, err := s.store.AggregateFor(s.ctx, "/v1/orders", "2026-08-25")
	s.Require().NoError(err)
	s.Equal(int64(1), second.Requests)
}

// TestAggregateAbsentIsZero verifies unknown endpoint/day pairs read back as
// zero counters rather than an error.
func (s *InMemoryStoreSuite) TestAggregateAbsentIsZero() {
	agg, err := s.store.AggregateFor(s.ctx, "/v1/unknown", "2026-01-01")
	s.Require().NoError(err)
	s.Zero(agg.Requests)
}

// TestSweep verifies expired rings and aggregates are dropped.
func (s *InMemoryStoreSuite) TestSweep() {
	s.Require().NoError(s.store.AppendRecent(s.ctx, "user:u1", s.record("/v1/orders", 200), 100, time.Minute))
	s.Require().NoError(s.store.IncrAggregate(s.ctx, s.record("/v1/orders", 200), time.Minute))

	s.clock.Advance(2 * time.Minute)

	removed, err := s.store.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, removed)
}
