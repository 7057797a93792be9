// Package windowlimit enforces per-identity quotas over fixed calendar
// windows. Hourly and daily counters share one store; the hourly window is
// checked first because it resets sooner and gives the caller the earliest
// actionable retry time.
package windowlimit

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/middleware/requesttime"
)

// CounterStore is the window counter dependency, satisfied by
// store/counter implementations.
type CounterStore interface {
	CheckAndIncr(ctx context.Context, key string, limit int64, ttl time.Duration) (count int64, allowed bool, err error)
	Get(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// checkOrder fixes which window is evaluated first.
var checkOrder = []models.WindowType{models.WindowHourly, models.WindowDaily}

// Service is the calendar-window limiter.
type Service struct {
	store   CounterStore
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// New creates the window limiter.
func New(store CounterStore, cfg *config.Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "counter store is required")
	}
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "config is required")
	}

	svc := &Service{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckAndIncrement evaluates the identity's hourly then daily window,
// consuming one unit from each window that admits the request. A window at
// its limit denies without consuming, so a blocked caller's own retries can
// never extend the block. When the hourly window admits and the daily window
// then denies, the hourly unit stays consumed: the hourly bucket expires
// before the daily block lifts, so there is nothing to unwind.
//
// Store failures resolve through the class's failure mode: fail-open admits
// the request flagged Degraded, fail-closed surfaces CodeStoreUnavailable for
// the transport to turn into a 503.
func (s *Service) CheckAndIncrement(ctx context.Context, identity models.Identity, tier models.Tier, class models.EndpointClass) (*models.RateLimitResult, error) {
	now := requesttime.Now(ctx)
	var hourlyCount int

	for _, window := range checkOrder {
		limit := tier.LimitFor(window)
		key := models.NewWindowKey(identity, window, now)
		ttl := window.NextReset(now).Sub(now)

		storeCtx, cancel := context.WithTimeout(ctx, s.cfg.Windows.StoreTimeout)
		count, allowed, err := s.store.CheckAndIncr(storeCtx, key.String(), int64(limit), ttl)
		cancel()

		if err != nil {
			return s.applyFailureMode(ctx, identity, tier, class, window, err)
		}

		if !allowed {
			if s.metrics != nil {
				s.metrics.RecordWindowDenial(window.String(), tier.Name.String())
			}
			s.logger.Info("rate limit exceeded",
				"identity", identity.Key(),
				"tier", tier.Name,
				"window", window,
				"limit", limit,
			)
			return denied(tier, class, window, int(count), now), nil
		}

		if window == models.WindowHourly {
			hourlyCount = int(count)
		}
	}

	// Both windows admitted; report the hourly contract since it is the
	// limit the caller will hit first.
	return allowedResult(tier, class, models.WindowHourly, hourlyCount, now), nil
}

// Status reports both windows' usage without consuming quota.
func (s *Service) Status(ctx context.Context, identity models.Identity, tier models.Tier) (map[models.WindowType]*models.RateLimitResult, error) {
	now := requesttime.Now(ctx)
	out := make(map[models.WindowType]*models.RateLimitResult, len(checkOrder))

	for _, window := range checkOrder {
		count, err := s.currentCount(ctx, identity, window, now)
		if err != nil {
			return nil, err
		}

		limit := tier.LimitFor(window)
		result := &models.RateLimitResult{
			Allowed:      count < limit,
			Limit:        limit,
			Remaining:    remaining(limit, count),
			CurrentUsage: count,
			Window:       window,
			Tier:         tier.Name,
			ResetAt:      window.NextReset(now),
		}
		out[window] = result
	}
	return out, nil
}

// Reset clears one window counter for an identity. Admin surface only.
func (s *Service) Reset(ctx context.Context, identity models.Identity, window models.WindowType) error {
	now := requesttime.Now(ctx)
	key := models.NewWindowKey(identity, window, now)
	if err := s.store.Reset(ctx, key.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "reset window counter")
	}
	return nil
}

func (s *Service) currentCount(ctx context.Context, identity models.Identity, window models.WindowType, now time.Time) (int, error) {
	key := models.NewWindowKey(identity, window, now)

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.Windows.StoreTimeout)
	defer cancel()

	count, err := s.store.Get(storeCtx, key.String())
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// applyFailureMode resolves a store failure through the endpoint class's
// configured policy.
func (s *Service) applyFailureMode(ctx context.Context, identity models.Identity, tier models.Tier, class models.EndpointClass, window models.WindowType, cause error) (*models.RateLimitResult, error) {
	mode := s.cfg.Failure[class]

	if mode == config.FailClosed {
		if s.metrics != nil {
			s.metrics.RecordFailClosed()
		}
		s.logger.Error("counter store unavailable, failing closed",
			"identity", identity.Key(),
			"class", class,
			"window", window,
			"error", cause,
		)
		return nil, dErrors.Wrap(cause, dErrors.CodeStoreUnavailable, "window check failed closed")
	}

	if s.metrics != nil {
		s.metrics.RecordFailOpen("windowlimit")
	}
	s.logger.Warn("counter store unavailable, failing open",
		"identity", identity.Key(),
		"class", class,
		"window", window,
		"error", cause,
	)

	now := requesttime.Now(ctx)
	return &models.RateLimitResult{
		Allowed:   true,
		Degraded:  true,
		Limit:     s.cfg.Windows.FailOpenLimit,
		Remaining: s.cfg.Windows.FailOpenLimit,
		Window:    models.WindowHourly,
		Class:     class,
		Tier:      tier.Name,
		ResetAt:   models.WindowHourly.NextReset(now),
	}, nil
}

func denied(tier models.Tier, class models.EndpointClass, window models.WindowType, count int, now time.Time) *models.RateLimitResult {
	resetAt := window.NextReset(now)
	return &models.RateLimitResult{
		Allowed:      false,
		Limit:        tier.LimitFor(window),
		Remaining:    0,
		CurrentUsage: count,
		Window:       window,
		Class:        class,
		Tier:         tier.Name,
		ResetAt:      resetAt,
		RetryAfter:   retryAfterSeconds(resetAt, now),
	}
}

func allowedResult(tier models.Tier, class models.EndpointClass, window models.WindowType, count int, now time.Time) *models.RateLimitResult {
	limit := tier.LimitFor(window)
	return &models.RateLimitResult{
		Allowed:      true,
		Limit:        limit,
		Remaining:    remaining(limit, count),
		CurrentUsage: count,
		Window:       window,
		Class:        class,
		Tier:         tier.Name,
		ResetAt:      window.NextReset(now),
	}
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}

func retryAfterSeconds(resetAt, now time.Time) int {
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}
