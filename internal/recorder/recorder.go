// Package recorder persists usage records and violations off the request
// path. Enqueueing never blocks: a full queue drops the entry with a warning
// and a metric, because a slow audit sink must never add latency to a gated
// response.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"turnstile/internal/audit"
	"turnstile/internal/config"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/internal/observability"
	"turnstile/internal/store/usage"
	"turnstile/internal/store/violations"
	dErrors "turnstile/pkg/domain-errors"
)

// defaultQueueSize bounds the pending entry queue.
const defaultQueueSize = 1024

// persistTimeout bounds each background store write.
const persistTimeout = 5 * time.Second

// entry is one queued unit of work. Exactly one field is set.
type entry struct {
	usage     *models.UsageRecord
	violation *models.Violation
}

// Recorder is the async audit and usage recorder.
type Recorder struct {
	usageStore      usage.Store
	violationsStore violations.Store
	cfg             *config.Config
	logger          *slog.Logger
	metrics         *metrics.Metrics
	audit           observability.AuditPublisher

	queue chan entry
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithAuditPublisher sets the audit event publisher for violation events.
func WithAuditPublisher(p observability.AuditPublisher) Option {
	return func(r *Recorder) {
		r.audit = p
	}
}

// WithQueueSize overrides the pending queue bound.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan entry, n)
		}
	}
}

// New creates the recorder and starts its worker.
func New(usageStore usage.Store, violationsStore violations.Store, cfg *config.Config, opts ...Option) (*Recorder, error) {
	if usageStore == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "usage store is required")
	}
	if violationsStore == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "violations store is required")
	}
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "config is required")
	}

	r := &Recorder{
		usageStore:      usageStore,
		violationsStore: violationsStore,
		cfg:             cfg,
		logger:          slog.Default(),
		queue:           make(chan entry, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.work()
	return r, nil
}

// RecordUsage enqueues one gated-request record. Never blocks.
func (r *Recorder) RecordUsage(record *models.UsageRecord) {
	if record == nil {
		return
	}
	r.enqueue(entry{usage: record}, "usage")
}

// RecordViolation enqueues one violation. Never blocks.
func (r *Recorder) RecordViolation(violation *models.Violation) {
	if violation == nil {
		return
	}
	r.enqueue(entry{violation: violation}, "violation")
}

// Close stops accepting entries and drains the queue.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Recorder) enqueue(e entry, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- e:
	default:
		if r.metrics != nil {
			r.metrics.RecordRecorderDrop(kind)
		}
		r.logger.Warn("recorder queue full, entry dropped", "kind", kind)
	}
}

func (r *Recorder) work() {
	defer r.wg.Done()
	for e := range r.queue {
		switch {
		case e.usage != nil:
			r.persistUsage(e.usage)
		case e.violation != nil:
			r.persistViolation(e.violation)
		}
	}
}

func (r *Recorder) persistUsage(record *models.UsageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := r.usageStore.AppendRecent(ctx, record.Identity, record, r.cfg.Usage.RecentLimit, r.cfg.Usage.AggregateTTL); err != nil {
		r.logger.Warn("usage ring append failed", "identity", record.Identity, "error", err)
	}
	if err := r.usageStore.IncrAggregate(ctx, record, r.cfg.Usage.AggregateTTL); err != nil {
		r.logger.Warn("usage aggregate increment failed", "endpoint", record.Endpoint, "error", err)
	}
}

func (r *Recorder) persistViolation(violation *models.Violation) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := r.violationsStore.Insert(ctx, violation); err != nil {
		r.logger.Error("violation insert failed",
			"violation_id", violation.ID,
			"type", violation.Type,
			"error", err,
		)
	}

	observability.LogAudit(ctx, r.logger, r.audit, audit.ActionViolationDetected,
		"identity", violation.Identity,
		"ip", violation.IP,
		"violation_type", violation.Type.String(),
		"severity", string(violation.Severity),
	)
}
