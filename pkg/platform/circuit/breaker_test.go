package circuit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// BreakerSuite tests the two-state circuit breaker.
//
// Justification: The breaker decides when the gate abandons the shared counter
// store and serves degraded decisions. Wrong transition logic would either keep
// hammering a dead store or never recover from a transient outage.
type BreakerSuite struct {
	suite.Suite
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) TestStartsClosed() {
	b := New("counter-store")
	s.Equal(StateClosed, b.State())
	s.False(b.IsOpen())
	s.True(b.LastOpenedAt().IsZero())
}

func (s *BreakerSuite) TestOpensAfterFailureThreshold() {
	b := New("counter-store", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		fallback, change := b.RecordFailure()
		s.False(fallback)
		s.False(change.Opened)
	}

	fallback, change := b.RecordFailure()
	s.True(fallback)
	s.True(change.Opened)
	s.True(b.IsOpen())
	s.False(b.LastOpenedAt().IsZero())
}

func (s *BreakerSuite) TestSuccessResetsFailureStreak() {
	b := New("counter-store", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	s.False(b.IsOpen(), "streak should restart after an interleaved success")

	_, change := b.RecordFailure()
	s.True(change.Opened)
}

func (s *BreakerSuite) TestClosesAfterSuccessThreshold() {
	b := New("counter-store", WithFailureThreshold(1), WithSuccessThreshold(2))

	_, change := b.RecordFailure()
	s.Require().True(change.Opened)

	usePrimary, change := b.RecordSuccess()
	s.False(usePrimary)
	s.False(change.Closed)

	usePrimary, change = b.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed)
	s.False(b.IsOpen())
}

func (s *BreakerSuite) TestFailureWhileOpenResetsSuccessStreak() {
	b := New("counter-store", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordSuccess()

	s.True(b.IsOpen(), "successes interrupted by a failure must not close the circuit")
}

func (s *BreakerSuite) TestReset() {
	b := New("counter-store", WithFailureThreshold(1))
	b.RecordFailure()
	s.Require().True(b.IsOpen())

	b.Reset()
	s.False(b.IsOpen())
	s.Equal(StateClosed, b.State())
}
