package checker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/checker"
	"turnstile/internal/config"
	"turnstile/internal/models"
	"turnstile/internal/service/tier"
	"turnstile/internal/service/windowlimit"
	"turnstile/internal/store/allowlist"
	"turnstile/internal/store/counter"
	"turnstile/pkg/clock"
	"turnstile/pkg/platform/middleware/requesttime"
)

type CheckerSuite struct {
	suite.Suite
	checker   *checker.Checker
	allowlist *allowlist.InMemoryStore
	clock     *clock.Virtual
	ctx       context.Context
}

func TestCheckerSuite(t *testing.T) {
	suite.Run(t, new(CheckerSuite))
}

func (s *CheckerSuite) SetupTest() {
	s.clock = clock.NewVirtual(time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC))
	s.ctx = requesttime.WithTime(context.Background(), s.clock.Now())

	cfg := config.DefaultConfig()
	s.allowlist = allowlist.NewInMemoryStore(allowlist.WithClock(s.clock))

	counters := counter.NewInMemoryStore(counter.WithClock(s.clock))
	limiter, err := windowlimit.New(counters, cfg)
	s.Require().NoError(err)

	tiers, err := tier.New(nil, cfg, tier.WithClock(s.clock))
	s.Require().NoError(err)

	c, err := checker.New(s.allowlist, tiers, limiter)
	s.Require().NoError(err)
	s.checker = c
}

// TestEnforcedRequestConsumesQuota verifies a plain identity is limited by
// its resolved tier.
func (s *CheckerSuite) TestEnforcedRequestConsumesQuota() {
	identity := models.Identity{UserID: "u1"}

	result, err := s.checker.CheckRequest(s.ctx, identity, models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.False(result.Bypassed)
	s.Equal(models.TierFree, result.Tier)
	s.Equal(100, result.Limit)
	s.Equal(99, result.Remaining)
}

// TestAllowlistedIdentityBypasses verifies an allowlisted identity never
// consumes quota.
//
// Justification: the bypass must leave the counters untouched, otherwise a
// later allowlist removal would find the identity already at its limit.
func (s *CheckerSuite) TestAllowlistedIdentityBypasses() {
	identity := models.Identity{IP: "203.0.113.7"}

	entry, err := models.NewAllowlistEntry(models.AllowlistTypeIP, "203.0.113.7", "load test", "ops", nil, s.clock.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.allowlist.Add(s.ctx, entry))

	for i := 0; i < 150; i++ {
		result, err := s.checker.CheckRequest(s.ctx, identity, models.ClassAPI)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.True(result.Bypassed)
	}

	// Removing the exemption restores a full, untouched quota.
	s.Require().NoError(s.allowlist.Remove(s.ctx, models.AllowlistTypeIP, "203.0.113.7"))
	result, err := s.checker.CheckRequest(s.ctx, identity, models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.False(result.Bypassed)
	s.Equal(99, result.Remaining)
}

// TestExpiredAllowlistEntryEnforces verifies a lapsed exemption no longer
// bypasses.
func (s *CheckerSuite) TestExpiredAllowlistEntryEnforces() {
	identity := models.Identity{UserID: "u2"}

	expiry := s.clock.Now().Add(time.Hour)
	entry, err := models.NewAllowlistEntry(models.AllowlistTypeUserID, "u2", "migration", "ops", &expiry, s.clock.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.allowlist.Add(s.ctx, entry))

	result, err := s.checker.CheckRequest(s.ctx, identity, models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Bypassed)

	s.clock.Advance(2 * time.Hour)
	ctx := requesttime.WithTime(context.Background(), s.clock.Now())

	result, err = s.checker.CheckRequest(ctx, identity, models.ClassAPI)
	s.Require().NoError(err)
	s.False(result.Bypassed)
}

// TestDenialReported verifies exhausting the hourly window yields a denial
// result rather than an error.
func (s *CheckerSuite) TestDenialReported() {
	identity := models.Identity{UserID: "u3"}

	for i := 0; i < 100; i++ {
		result, err := s.checker.CheckRequest(s.ctx, identity, models.ClassAPI)
		s.Require().NoError(err)
		s.Require().True(result.Allowed)
	}

	result, err := s.checker.CheckRequest(s.ctx, identity, models.ClassAPI)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(models.WindowHourly, result.Window)
	s.Positive(result.RetryAfter)
}

// TestAllowlistOutageEnforces verifies an allowlist store failure limits the
// request instead of waving it through.
func (s *CheckerSuite) TestAllowlistOutageEnforces() {
	cfg := config.DefaultConfig()
	counters := counter.NewInMemoryStore(counter.WithClock(s.clock))
	limiter, err := windowlimit.New(counters, cfg)
	s.Require().NoError(err)
	tiers, err := tier.New(nil, cfg, tier.WithClock(s.clock))
	s.Require().NoError(err)

	c, err := checker.New(failingAllowlist{}, tiers, limiter)
	s.Require().NoError(err)

	result, err := c.CheckRequest(s.ctx, models.Identity{UserID: "u4"}, models.ClassAPI)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.False(result.Bypassed)
	s.Equal(99, result.Remaining)
}

// TestStatusDoesNotConsume verifies status reads leave the counters alone.
func (s *CheckerSuite) TestStatusDoesNotConsume() {
	identity := models.Identity{UserID: "u5"}

	_, err := s.checker.CheckRequest(s.ctx, identity, models.ClassAPI)
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		status, err := s.checker.Status(s.ctx, identity)
		s.Require().NoError(err)
		s.Equal(1, status[models.WindowHourly].CurrentUsage)
		s.Equal(1, status[models.WindowDaily].CurrentUsage)
	}
}

// TestZeroIdentityRejected verifies an empty identity is invalid input.
func (s *CheckerSuite) TestZeroIdentityRejected() {
	_, err := s.checker.CheckRequest(s.ctx, models.Identity{}, models.ClassAPI)
	s.Error(err)
}

type failingAllowlist struct{}

func (failingAllowlist) Match(ctx context.Context, identity models.Identity) (*models.AllowlistEntry, error) {
	return nil, errors.New("allowlist down")
}
