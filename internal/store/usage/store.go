// Package usage persists the per-identity recent-request ring and the rolling
// per-endpoint daily aggregates behind the usage recorder.
package usage

import (
	"context"
	"time"

	"turnstile/internal/models"
)

// Aggregate is one endpoint's counters for one UTC day.
type Aggregate struct {
	Endpoint        string `json:"endpoint"`
	Day             string `json:"day"` // YYYY-MM-DD
	Requests        int64  `json:"requests"`
	Errors          int64  `json:"errors"` // responses with status >= 400
	TotalDurationMS int64  `json:"total_duration_ms"`
}

// Store is the usage persistence contract.
type Store interface {
	// AppendRecent records one request at the head of the identity's ring,
	// truncating to maxEntries.
	AppendRecent(ctx context.Context, identityKey string, rec *models.UsageRecord, maxEntries int, ttl time.Duration) error

	// Recent returns up to limit records for the identity, newest first.
	Recent(ctx context.Context, identityKey string, limit int) ([]*models.UsageRecord, error)

	// IncrAggregate folds one request into the endpoint's daily counters.
	// The TTL bounds aggregate retention.
	IncrAggregate(ctx context.Context, rec *models.UsageRecord, ttl time.Duration) error

	// AggregateFor reads one endpoint's counters for one UTC day
	// (day formatted YYYY-MM-DD). Absent aggregates return zero counters.
	AggregateFor(ctx context.Context, endpoint, day string) (*Aggregate, error)
}
