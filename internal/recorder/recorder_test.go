package recorder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/config"
	"turnstile/internal/models"
	"turnstile/internal/recorder"
	"turnstile/internal/store/usage"
	"turnstile/internal/store/violations"
)

type RecorderSuite struct {
	suite.Suite
	recorder        *recorder.Recorder
	usageStore      *usage.InMemoryStore
	violationsStore *violations.InMemoryStore
	identity        models.Identity
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.usageStore = usage.NewInMemoryStore()
	s.violationsStore = violations.NewInMemoryStore()
	s.identity = models.Identity{UserID: "u1"}

	r, err := recorder.New(s.usageStore, s.violationsStore, config.DefaultConfig())
	s.Require().NoError(err)
	s.recorder = r
}

func (s *RecorderSuite) record(endpoint string, status int) {
	rec, err := models.NewUsageRecord(s.identity, endpoint, "GET", status, 12*time.Millisecond, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.recorder.RecordUsage(rec)
}

// TestUsagePersistedThroughQueue verifies records enqueued before Close land
// in both the ring and the aggregates.
func (s *RecorderSuite) TestUsagePersistedThroughQueue() {
	s.record("/appointments/123", 200)
	s.record("/appointments/456", 500)
	s.recorder.Close()

	recent, err := s.usageStore.Recent(context.Background(), s.identity.Key(), 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("/appointments", recent[0].Endpoint, "IDs stripped for aggregation")

	agg, err := s.usageStore.AggregateFor(context.Background(), "/appointments", "2026-08-24")
	s.Require().NoError(err)
	s.Equal(int64(2), agg.Requests)
	s.Equal(int64(1), agg.Errors)
	s.Equal(int64(24), agg.TotalDurationMS)
}

// TestViolationPersistedThroughQueue verifies violations reach the store.
func (s *RecorderSuite) TestViolationPersistedThroughQueue() {
	v, err := models.NewViolation(models.ViolationAmountExceeded, s.identity, "amount over ceiling", nil, time.Now())
	s.Require().NoError(err)

	s.recorder.RecordViolation(v)
	s.recorder.Close()

	stored, err := s.violationsStore.GetByID(context.Background(), v.ID)
	s.Require().NoError(err)
	s.Equal(models.ViolationAmountExceeded, stored.Type)
}

// TestFullQueueDropsInsteadOfBlocking verifies enqueueing past the bound
// returns immediately.
//
// Justification: the recorder sits on the response path of every gated
// request; the one behavior it must never exhibit is blocking.
func (s *RecorderSuite) TestFullQueueDropsInsteadOfBlocking() {
	r, err := recorder.New(s.usageStore, s.violationsStore, config.DefaultConfig(), recorder.WithQueueSize(1))
	s.Require().NoError(err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			rec, recErr := models.NewUsageRecord(s.identity, "/x", "GET", 200, time.Millisecond, time.Now())
			s.Require().NoError(recErr)
			r.RecordUsage(rec)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.Fail("recorder blocked on a full queue")
	}
	r.Close()
}

// TestRecordAfterCloseIsIgnored verifies late records are dropped quietly.
func (s *RecorderSuite) TestRecordAfterCloseIsIgnored() {
	s.recorder.Close()
	s.record("/late", 200)

	recent, err := s.usageStore.Recent(context.Background(), s.identity.Key(), 10)
	s.Require().NoError(err)
	s.Empty(recent)
}

// TestNilEntriesIgnored verifies nil inputs are no-ops.
func (s *RecorderSuite) TestNilEntriesIgnored() {
	s.recorder.RecordUsage(nil)
	s.recorder.RecordViolation(nil)
	s.recorder.Close()
}
