// Package metrics exposes Prometheus instrumentation for the gating engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GateDecisionsTotal      *prometheus.CounterVec
	GateDecisionSeconds     *prometheus.HistogramVec
	WindowDenialsTotal      *prometheus.CounterVec
	FailOpenTotal           *prometheus.CounterVec
	FailClosedTotal         prometheus.Counter
	ViolationsTotal         *prometheus.CounterVec
	AllowlistBypassTotal    *prometheus.CounterVec
	TierCacheLookupsTotal   *prometheus.CounterVec
	CooldownSuppressedTotal *prometheus.CounterVec
	RecorderDroppedTotal    *prometheus.CounterVec
	DegradedModeActive      prometheus.Gauge
	CleanupRunsTotal        *prometheus.CounterVec
	CleanupRemovedTotal     prometheus.Counter
	CleanupDurationSeconds  prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		GateDecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_gate_decisions_total",
			Help: "Gate decisions by endpoint class and outcome (allow, deny, bypass)",
		}, []string{"class", "outcome"}),
		GateDecisionSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turnstile_gate_decision_seconds",
			Help:    "Time spent producing a gate decision, excluding the business handler",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"class"}),
		WindowDenialsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_window_denials_total",
			Help: "Requests denied by a window limit, by window type and tier",
		}, []string{"window", "tier"}),
		FailOpenTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_failopen_total",
			Help: "Requests allowed because enforcement could not decide, by component",
		}, []string{"component"}),
		FailClosedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_failclosed_total",
			Help: "Payment requests denied because enforcement could not decide",
		}),
		ViolationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_violations_total",
			Help: "Payment violations by type",
		}, []string{"type"}),
		AllowlistBypassTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_allowlist_bypass_total",
			Help: "Requests that bypassed window limits via the allowlist",
		}, []string{"type"}),
		TierCacheLookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_tier_cache_lookups_total",
			Help: "Tier resolutions by cache outcome (hit, miss, error)",
		}, []string{"outcome"}),
		CooldownSuppressedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_cooldown_suppressed_total",
			Help: "Trigger firings suppressed by the cooldown tracker, by trigger type",
		}, []string{"trigger"}),
		RecorderDroppedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_recorder_dropped_total",
			Help: "Recorder entries dropped because the queue was full, by kind",
		}, []string{"kind"}),
		DegradedModeActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "turnstile_degraded_mode_active",
			Help: "1 while the gate is serving decisions from the local fallback limiter",
		}),
		CleanupRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_cleanup_runs_total",
			Help: "Cleanup worker runs by status",
		}, []string{"status"}),
		CleanupRemovedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_cleanup_removed_total",
			Help: "Expired entries removed by the cleanup worker",
		}),
		CleanupDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "turnstile_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
	}
}

func (m *Metrics) RecordDecision(class, outcome string, elapsed time.Duration) {
	m.GateDecisionsTotal.WithLabelValues(class, outcome).Inc()
	m.GateDecisionSeconds.WithLabelValues(class).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordWindowDenial(window, tier string) {
	m.WindowDenialsTotal.WithLabelValues(window, tier).Inc()
}

func (m *Metrics) RecordFailOpen(component string) {
	m.FailOpenTotal.WithLabelValues(component).Inc()
}

func (m *Metrics) RecordFailClosed() {
	m.FailClosedTotal.Inc()
}

func (m *Metrics) RecordViolation(vtype string) {
	m.ViolationsTotal.WithLabelValues(vtype).Inc()
}

func (m *Metrics) RecordAllowlistBypass(entryType string) {
	m.AllowlistBypassTotal.WithLabelValues(entryType).Inc()
}

func (m *Metrics) RecordTierLookup(outcome string) {
	m.TierCacheLookupsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCooldownSuppressed(trigger string) {
	m.CooldownSuppressedTotal.WithLabelValues(trigger).Inc()
}

func (m *Metrics) RecordRecorderDrop(kind string) {
	m.RecorderDroppedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetDegraded(active bool) {
	if active {
		m.DegradedModeActive.Set(1)
		return
	}
	m.DegradedModeActive.Set(0)
}

func (m *Metrics) RecordCleanupRun(status string, removed int, elapsed time.Duration) {
	m.CleanupRunsTotal.WithLabelValues(status).Inc()
	m.CleanupRemovedTotal.Add(float64(removed))
	m.CleanupDurationSeconds.Observe(elapsed.Seconds())
}
