package cooldown_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/models"
	"turnstile/internal/store/cooldown"
	"turnstile/pkg/clock"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *cooldown.InMemoryStore
	clock *clock.Virtual
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.clock = clock.NewVirtual(time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
	s.store = cooldown.NewInMemoryStore(cooldown.WithClock(s.clock))
	s.ctx = context.Background()
}

// TestRoundTrip verifies a recorded firing reads back with its timestamp.
func (s *InMemoryStoreSuite) TestRoundTrip() {
	key := models.NewCooldownKey(models.TriggerPaymentChange)
	at := s.clock.Now()

	s.Require().NoError(s.store.SetTriggered(s.ctx, key, at, time.Hour))

	got, ok, err := s.store.LastTriggered(s.ctx, key)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(at, got)
}

// TestUnknownTrigger verifies a never-fired trigger reads back as absent.
func (s *InMemoryStoreSuite) TestUnknownTrigger() {
	_, ok, err := s.store.LastTriggered(s.ctx, models.NewCooldownKey(models.TriggerManual))
	s.Require().NoError(err)
	s.False(ok)
}

// TestRecordExpires verifies records age out after their TTL.
func (s *InMemoryStoreSuite) TestRecordExpires() {
	key := models.NewCooldownKey(models.TriggerAuthChange)
	s.Require().NoError(s.store.SetTriggered(s.ctx, key, s.clock.Now(), time.Hour))

	s.clock.Advance(61 * time.Minute)

	_, ok, err := s.store.LastTriggered(s.ctx, key)
	s.Require().NoError(err)
	s.False(ok)
}

// TestClear verifies a cleared record is immediately absent.
func (s *InMemoryStoreSuite) TestClear() {
	key := models.NewCooldownKey(models.TriggerCriticalSecurity)
	s.Require().NoError(s.store.SetTriggered(s.ctx, key, s.clock.Now(), time.Hour))
	s.Require().NoError(s.store.Clear(s.ctx, key))

	_, ok, err := s.store.LastTriggered(s.ctx, key)
	s.Require().NoError(err)
	s.False(ok)
}

// TestSweep verifies expired records are dropped and live ones kept.
func (s *InMemoryStoreSuite) TestSweep() {
	s.Require().NoError(s.store.SetTriggered(s.ctx, "cooldown:a", s.clock.Now(), 10*time.Minute))
	s.Require().NoError(s.store.SetTriggered(s.ctx, "cooldown:b", s.clock.Now(), 2*time.Hour))

	s.clock.Advance(time.Hour)

	removed, err := s.store.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, ok, err := s.store.LastTriggered(s.ctx, "cooldown:b")
	s.Require().NoError(err)
	s.True(ok)
}
