package windowlimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/config"
	"turnstile/internal/models"
	"turnstile/internal/service/windowlimit"
	"turnstile/internal/store/counter"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/middleware/requesttime"
)

// failingStore simulates an unreachable counter backend.
type failingStore struct{}

func (failingStore) CheckAndIncr(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	return 0, false, dErrors.New(dErrors.CodeStoreUnavailable, "connection refused")
}

func (failingStore) Get(ctx context.Context, key string) (int64, error) {
	return 0, dErrors.New(dErrors.CodeStoreUnavailable, "connection refused")
}

func (failingStore) Reset(ctx context.Context, key string) error {
	return dErrors.New(dErrors.CodeStoreUnavailable, "connection refused")
}

type ServiceSuite struct {
	suite.Suite
	svc      *windowlimit.Service
	cfg      *config.Config
	ctx      context.Context
	identity models.Identity
	tier     models.Tier
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.cfg = config.DefaultConfig()

	svc, err := windowlimit.New(counter.NewInMemoryStore(), s.cfg)
	s.Require().NoError(err)
	s.svc = svc

	// Pin the request time mid-hour so window math is deterministic.
	s.ctx = requesttime.WithTime(context.Background(),
		time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC))
	s.identity = models.Identity{UserID: "u1"}
	s.tier = s.cfg.Tiers[models.TierFree] // 100/hour, 1000/day
}

func (s *ServiceSuite) check() *models.RateLimitResult {
	result, err := s.svc.CheckAndIncrement(s.ctx, s.identity, s.tier, models.ClassAPI)
	s.Require().NoError(err)
	return result
}

// ============================================================
// Window admission
// ============================================================

// TestRemainingCountsDown verifies every admitted request consumes one unit
// of the hourly contract.
func (s *ServiceSuite) TestRemainingCountsDown() {
	first := s.check()
	s.True(first.Allowed)
	s.Equal(100, first.Limit)
	s.Equal(99, first.Remaining)
	s.Equal(models.WindowHourly, first.Window)

	second := s.check()
	s.Equal(98, second.Remaining)
}

// TestDenialAtHourlyLimit verifies request limit+1 is denied with retry
// guidance pointing at the next hour boundary.
func (s *ServiceSuite) TestDenialAtHourlyLimit() {
	for i := 0; i < 100; i++ {
		s.Require().True(s.check().Allowed)
	}

	denied := s.check()
	s.False(denied.Allowed)
	s.Equal(models.WindowHourly, denied.Window)
	s.Equal(100, denied.CurrentUsage)
	s.Zero(denied.Remaining)
	s.Equal(time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC), denied.ResetAt)
	s.Equal(30*60, denied.RetryAfter)
}

// TestDeniedRequestsDoNotConsume verifies repeated denials leave the counter
// pinned at the limit.
// Justification: if denials consumed quota, a blocked client's retries would
// extend its own block indefinitely.
func (s *ServiceSuite) TestDeniedRequestsDoNotConsume() {
	for i := 0; i < 100; i++ {
		s.check()
	}
	for i := 0; i < 5; i++ {
		s.False(s.check().Allowed)
	}

	status, err := s.svc.Status(s.ctx, s.identity, s.tier)
	s.Require().NoError(err)
	s.Equal(100, status[models.WindowHourly].CurrentUsage)
}

// TestDailyWindowDenies verifies the daily quota binds even when each hour
// stays under its own limit.
func (s *ServiceSuite) TestDailyWindowDenies() {
	tier := models.Tier{Name: models.TierFree, HourlyLimit: 100, DailyLimit: 150}

	// 100 requests in hour one, then move to the next hour.
	for i := 0; i < 100; i++ {
		_, err := s.svc.CheckAndIncrement(s.ctx, s.identity, tier, models.ClassAPI)
		s.Require().NoError(err)
	}
	laterCtx := requesttime.WithTime(context.Background(),
		time.Date(2026, 8, 24, 11, 30, 0, 0, time.UTC))

	for i := 0; i < 50; i++ {
		result, err := s.svc.CheckAndIncrement(laterCtx, s.identity, tier, models.ClassAPI)
		s.Require().NoError(err)
		s.Require().True(result.Allowed)
	}

	denied, err := s.svc.CheckAndIncrement(laterCtx, s.identity, tier, models.ClassAPI)
	s.Require().NoError(err)
	s.False(denied.Allowed)
	s.Equal(models.WindowDaily, denied.Window)
	s.Equal(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), denied.ResetAt)
}

// TestDailyDenialKeepsHourlyConsumption verifies the hourly unit taken before
// a daily denial stays consumed.
// Justification: the hourly bucket expires before the daily block lifts, so
// unwinding it would buy the caller nothing and cost a store round trip.
func (s *ServiceSuite) TestDailyDenialKeepsHourlyConsumption() {
	tier := models.Tier{Name: models.TierFree, HourlyLimit: 10, DailyLimit: 3}

	for i := 0; i < 3; i++ {
		result, err := s.svc.CheckAndIncrement(s.ctx, s.identity, tier, models.ClassAPI)
		s.Require().NoError(err)
		s.Require().True(result.Allowed)
	}

	denied, err := s.svc.CheckAndIncrement(s.ctx, s.identity, tier, models.ClassAPI)
	s.Require().NoError(err)
	s.False(denied.Allowed)
	s.Equal(models.WindowDaily, denied.Window)

	status, err := s.svc.Status(s.ctx, s.identity, tier)
	s.Require().NoError(err)
	s.Equal(4, status[models.WindowHourly].CurrentUsage)
	s.Equal(3, status[models.WindowDaily].CurrentUsage)
}

// TestWindowsResetAtCalendarBoundary verifies a new hour grants fresh hourly
// quota to a previously blocked identity.
func (s *ServiceSuite) TestWindowsResetAtCalendarBoundary() {
	for i := 0; i < 100; i++ {
		s.check()
	}
	s.False(s.check().Allowed)

	nextHour := requesttime.WithTime(context.Background(),
		time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC))
	result, err := s.svc.CheckAndIncrement(nextHour, s.identity, s.tier, models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(99, result.Remaining)
}

// TestIdentitiesIsolated verifies one identity exhausting its quota leaves
// another untouched.
func (s *ServiceSuite) TestIdentitiesIsolated() {
	for i := 0; i < 100; i++ {
		s.check()
	}
	s.False(s.check().Allowed)

	other := models.Identity{UserID: "u2"}
	result, err := s.svc.CheckAndIncrement(s.ctx, other, s.tier, models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

// ============================================================
// Failure policy
// ============================================================

// TestAPIClassFailsOpen verifies a store outage admits API traffic flagged
// degraded with the generous fail-open contract.
func (s *ServiceSuite) TestAPIClassFailsOpen() {
	svc, err := windowlimit.New(failingStore{}, s.cfg)
	s.Require().NoError(err)

	result, err := svc.CheckAndIncrement(s.ctx, s.identity, s.tier, models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.True(result.Degraded)
	s.Equal(s.cfg.Windows.FailOpenLimit, result.Limit)
}

// TestPaymentClassFailsClosed verifies a store outage denies payment traffic
// with a store-unavailable error.
// Justification: admitting unverifiable payment attempts converts an
// infrastructure incident into a fraud window.
func (s *ServiceSuite) TestPaymentClassFailsClosed() {
	svc, err := windowlimit.New(failingStore{}, s.cfg)
	s.Require().NoError(err)

	_, err = svc.CheckAndIncrement(s.ctx, s.identity, s.tier, models.ClassPayment)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}

// ============================================================
// Status and reset
// ============================================================

// TestStatusDoesNotConsume verifies repeated status reads never move the
// counters.
func (s *ServiceSuite) TestStatusDoesNotConsume() {
	s.check()

	for i := 0; i < 3; i++ {
		status, err := s.svc.Status(s.ctx, s.identity, s.tier)
		s.Require().NoError(err)
		s.Equal(1, status[models.WindowHourly].CurrentUsage)
		s.Equal(1, status[models.WindowDaily].CurrentUsage)
		s.Equal(99, status[models.WindowHourly].Remaining)
	}
}

// TestResetClearsWindow verifies an admin reset reopens a blocked identity.
func (s *ServiceSuite) TestResetClearsWindow() {
	for i := 0; i < 100; i++ {
		s.check()
	}
	s.False(s.check().Allowed)

	s.Require().NoError(s.svc.Reset(s.ctx, s.identity, models.WindowHourly))

	result := s.check()
	s.True(result.Allowed)
}
