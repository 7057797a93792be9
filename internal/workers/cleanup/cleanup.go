// Package cleanup runs the background sweep over in-memory stores. Redis
// backed stores expire keys natively; the memory fallbacks and the tier cache
// need a periodic pass to drop dead entries.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/metrics"
)

// Sweeper removes expired entries and reports how many were dropped.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Result summarizes one cleanup run.
type Result struct {
	Removed  int
	Failed   int
	Duration time.Duration
}

// Option configures the Worker.
type Option func(*Worker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithInterval overrides the sweep interval.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// Worker periodically sweeps a set of stores.
type Worker struct {
	sweepers map[string]Sweeper
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

// New creates the worker. The map key names each sweeper in logs.
func New(sweepers map[string]Sweeper, opts ...Option) *Worker {
	w := &Worker{
		sweepers: sweepers,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs sweeps until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			res := w.RunOnce(ctx)
			res.Duration = time.Since(start)

			status := "success"
			if res.Failed > 0 {
				status = "error"
			}
			w.logger.Info("cleanup_run_completed",
				"removed", res.Removed,
				"failed_sweepers", res.Failed,
				"duration_ms", res.Duration.Milliseconds(),
			)
			if w.metrics != nil {
				w.metrics.RecordCleanupRun(status, res.Removed, res.Duration)
			}

		case <-ctx.Done():
			w.logger.Info("cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce sweeps every store once. A failing sweeper is logged and skipped so
// one bad store cannot starve the others.
func (w *Worker) RunOnce(ctx context.Context) *Result {
	res := &Result{}
	for name, sweeper := range w.sweepers {
		removed, err := sweeper.Sweep(ctx)
		if err != nil {
			res.Failed++
			w.logger.Error("cleanup_sweep_failed",
				"store", name,
				"error", err,
			)
			continue
		}
		res.Removed += removed
	}
	return res
}
