package cleanup

// Justification: These tests verify sweep aggregation and failure isolation.
// The per-store expiry behavior is covered by each store's own tests; here we
// only care that the worker visits every sweeper and that one failing store
// does not stop the others.

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeSweeper struct {
	removed int
	err     error
	calls   int
}

func (f *fakeSweeper) Sweep(ctx context.Context) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.removed, nil
}

type CleanupSuite struct {
	suite.Suite
}

func TestCleanupSuite(t *testing.T) {
	suite.Run(t, new(CleanupSuite))
}

func (s *CleanupSuite) TestRunOnceAggregatesRemovals() {
	counters := &fakeSweeper{removed: 3}
	ledger := &fakeSweeper{removed: 7}
	w := New(map[string]Sweeper{"counters": counters, "ledger": ledger})

	res := w.RunOnce(context.Background())
	s.Equal(10, res.Removed)
	s.Equal(0, res.Failed)
	s.Equal(1, counters.calls)
	s.Equal(1, ledger.calls)
}

func (s *CleanupSuite) TestFailingSweeperDoesNotStopOthers() {
	broken := &fakeSweeper{err: errors.New("redis down")}
	healthy := &fakeSweeper{removed: 2}
	w := New(map[string]Sweeper{"broken": broken, "healthy": healthy})

	res := w.RunOnce(context.Background())
	s.Equal(2, res.Removed)
	s.Equal(1, res.Failed)
	s.Equal(1, healthy.calls, "healthy sweeper still ran")
}

func (s *CleanupSuite) TestStartStopsOnContextCancel() {
	w := New(map[string]Sweeper{}, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("worker did not stop on cancel")
	}
}
