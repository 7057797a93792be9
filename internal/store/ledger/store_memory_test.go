package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/models"
	"turnstile/internal/store/ledger"
	"turnstile/pkg/clock"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *ledger.InMemoryStore
	clock *clock.Virtual
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.clock = clock.NewVirtual(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	s.store = ledger.NewInMemoryStore(ledger.WithClock(s.clock))
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) attempt(amountCents int64) *models.PaymentAttempt {
	identity := models.Identity{UserID: "u1"}
	attempt, err := models.NewPaymentAttempt(identity, amountCents, models.PaymentInitiated, s.clock.Now())
	s.Require().NoError(err)
	return attempt
}

// ============================================================
// Ledger bounds and ordering
// ============================================================

// TestRecentNewestFirst verifies attempts come back in reverse insertion order.
// Justification: every fraud signal reads the head of the ledger; ordering is
// part of the store contract, not the caller's job.
func (s *InMemoryStoreSuite) TestRecentNewestFirst() {
	for i := int64(1); i <= 3; i++ {
		s.Require().NoError(s.store.Append(s.ctx, "user:u1", s.attempt(i*100), 50, 24*time.Hour))
	}

	got, err := s.store.Recent(s.ctx, "user:u1", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(int64(300), got[0].AmountCents)
	s.Equal(int64(100), got[2].AmountCents)
}

// TestLedgerIsBounded verifies the ledger truncates to maxEntries, dropping
// the oldest attempts.
func (s *InMemoryStoreSuite) TestLedgerIsBounded() {
	for i := int64(1); i <= 5; i++ {
		s.Require().NoError(s.store.Append(s.ctx, "user:u1", s.attempt(i*100), 3, 24*time.Hour))
	}

	got, err := s.store.Recent(s.ctx, "user:u1", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(int64(500), got[0].AmountCents)
	s.Equal(int64(300), got[2].AmountCents)
}

// TestRecentHonorsLimit verifies a caller can read fewer entries than stored.
func (s *InMemoryStoreSuite) TestRecentHonorsLimit() {
	for i := int64(1); i <= 5; i++ {
		s.Require().NoError(s.store.Append(s.ctx, "user:u1", s.attempt(i*100), 50, 24*time.Hour))
	}

	got, err := s.store.Recent(s.ctx, "user:u1", 2)
	s.Require().NoError(err)
	s.Len(got, 2)
}

// TestLedgerExpires verifies the ledger ages out after the retention TTL.
func (s *InMemoryStoreSuite) TestLedgerExpires() {
	s.Require().NoError(s.store.Append(s.ctx, "user:u1", s.attempt(100), 50, 24*time.Hour))

	s.clock.Advance(25 * time.Hour)

	got, err := s.store.Recent(s.ctx, "user:u1", 10)
	s.Require().NoError(err)
	s.Empty(got)
}

// ============================================================
// Method fingerprint index
// ============================================================

// TestBindMethodCountsDistinctIdentities verifies the index reports how many
// identities share an instrument, deduplicating repeat bindings.
func (s *InMemoryStoreSuite) TestBindMethodCountsDistinctIdentities() {
	n, err := s.store.BindMethod(s.ctx, "fp-1", "user:u1", 24*time.Hour)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	// Same identity again: no growth.
	n, err = s.store.BindMethod(s.ctx, "fp-1", "user:u1", 24*time.Hour)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	for i := 2; i <= 4; i++ {
		n, err = s.store.BindMethod(s.ctx, "fp-1", fmt.Sprintf("user:u%d", i), 24*time.Hour)
		s.Require().NoError(err)
	}
	s.Equal(int64(4), n)
}

// TestBindMethodExpiresIdentities verifies stale bindings stop counting after
// the retention window.
func (s *InMemoryStoreSuite) TestBindMethodExpiresIdentities() {
	_, err := s.store.BindMethod(s.ctx, "fp-1", "user:u1", 24*time.Hour)
	s.Require().NoError(err)

	s.clock.Advance(25 * time.Hour)

	n, err := s.store.BindMethod(s.ctx, "fp-1", "user:u2", 24*time.Hour)
	s.Require().NoError(err)
	s.Equal(int64(1), n, "expired identity must not count toward sharing")
}

// ============================================================
// Sweeping
// ============================================================

// TestSweepDropsExpiredState verifies the cleanup pass removes aged ledgers
// and method bindings.
func (s *InMemoryStoreSuite) TestSweepDropsExpiredState() {
	s.Require().NoError(s.store.Append(s.ctx, "user:u1", s.attempt(100), 50, time.Hour))
	_, err := s.store.BindMethod(s.ctx, "fp-1", "user:u1", time.Hour)
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)

	removed, err := s.store.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, removed)
}
