// Package cooldown throttles downstream side effects. Each trigger type fires
// at most once per configured interval; the tracker records firings and
// answers whether the interval has elapsed.
package cooldown

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/pkg/clock"
	dErrors "turnstile/pkg/domain-errors"
)

// Store is the timestamp persistence dependency, satisfied by store/cooldown
// implementations.
type Store interface {
	LastTriggered(ctx context.Context, key string) (at time.Time, ok bool, err error)
	SetTriggered(ctx context.Context, key string, at time.Time, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// Service is the cooldown tracker.
type Service struct {
	store   Store
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.Clock
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// New creates the cooldown tracker.
func New(store Store, cfg *config.Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "cooldown store is required")
	}
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "config is required")
	}

	svc := &Service{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ShouldTrigger reports whether the trigger's cooldown interval has elapsed
// since its last recorded firing. A zero-interval trigger always fires. The
// answer is advisory only; callers that act on it must follow up with
// RecordTrigger.
func (s *Service) ShouldTrigger(ctx context.Context, trigger models.TriggerType) (bool, error) {
	if !trigger.IsValid() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "unknown trigger type: "+trigger.String())
	}

	interval := s.cfg.Cooldowns[trigger]
	if interval <= 0 {
		return true, nil
	}

	last, ok, err := s.store.LastTriggered(ctx, models.NewCooldownKey(trigger))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "read cooldown record")
	}
	if !ok {
		return true, nil
	}

	elapsed := s.clock.Now().Sub(last)
	allowed := elapsed >= interval
	if !allowed {
		s.logger.Debug("trigger suppressed by cooldown",
			"trigger", trigger,
			"elapsed", elapsed,
			"interval", interval,
		)
		if s.metrics != nil {
			s.metrics.RecordCooldownSuppressed(trigger.String())
		}
	}
	return allowed, nil
}

// RecordTrigger marks the trigger as fired now, starting its cooldown
// interval. The record's TTL is the interval itself; once it lapses, the
// store forgets the firing and the trigger is eligible again regardless.
func (s *Service) RecordTrigger(ctx context.Context, trigger models.TriggerType) error {
	if !trigger.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown trigger type: "+trigger.String())
	}

	interval := s.cfg.Cooldowns[trigger]
	if interval <= 0 {
		return nil
	}

	now := s.clock.Now()
	if err := s.store.SetTriggered(ctx, models.NewCooldownKey(trigger), now, interval); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "record trigger firing")
	}
	s.logger.Debug("trigger recorded", "trigger", trigger, "next_eligible", now.Add(interval))
	return nil
}

// Clear removes the trigger's cooldown record so its next firing proceeds
// immediately. Exposed through the admin surface.
func (s *Service) Clear(ctx context.Context, trigger models.TriggerType) error {
	if !trigger.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown trigger type: "+trigger.String())
	}
	if err := s.store.Clear(ctx, models.NewCooldownKey(trigger)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "clear cooldown record")
	}
	return nil
}

// Status returns the last firing and remaining cooldown per configured
// trigger. Triggers that have never fired report a zero entry.
func (s *Service) Status(ctx context.Context) (map[models.TriggerType]models.CooldownEntry, error) {
	out := make(map[models.TriggerType]models.CooldownEntry, len(s.cfg.Cooldowns))
	for trigger, interval := range s.cfg.Cooldowns {
		entry := models.CooldownEntry{Trigger: trigger, Cooldown: interval}
		last, ok, err := s.store.LastTriggered(ctx, models.NewCooldownKey(trigger))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "read cooldown record")
		}
		if ok {
			entry.LastTriggeredAt = last
		}
		out[trigger] = entry
	}
	return out, nil
}
