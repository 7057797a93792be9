// Package tier resolves which quota profile applies to an identity. Billing
// is the source of truth; resolutions are cached with a TTL so the hot path
// almost never leaves the process, and concurrent misses for one identity
// collapse into a single upstream lookup.
package tier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"turnstile/internal/config"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/pkg/clock"
	dErrors "turnstile/pkg/domain-errors"
)

// BillingDirectory answers which tier an identity is subscribed to.
// Implementations call the billing system; returning an error or an unknown
// tier name resolves to the default tier.
type BillingDirectory interface {
	TierFor(ctx context.Context, identityKey string) (models.TierName, error)
}

// Service resolves and caches tier assignments.
type Service struct {
	directory BillingDirectory
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     clock.Clock

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedTier
}

type cachedTier struct {
	tier      models.Tier
	expiresAt time.Time
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

// New creates the tier resolver. A nil directory is allowed: every identity
// then resolves to the default tier, which is how single-tenant deployments
// without a billing system run.
func New(directory BillingDirectory, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "config is required")
	}

	svc := &Service{
		directory: directory,
		cfg:       cfg,
		logger:    slog.Default(),
		clock:     clock.NewSystem(),
		cache:     make(map[string]cachedTier),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Resolve returns the tier for an identity. Unknown identities, unknown tier
// names, and billing failures all resolve to the default tier; tier
// resolution never blocks a request.
func (s *Service) Resolve(ctx context.Context, identity models.Identity) models.Tier {
	key := identity.Key()

	if tier, ok := s.cached(key); ok {
		s.recordLookup("hit")
		return tier
	}
	s.recordLookup("miss")

	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.lookup(ctx, key), nil
	})
	if err != nil {
		// lookup never errors; singleflight only propagates panics here.
		return s.defaultTier()
	}
	return result.(models.Tier)
}

// Evict drops one identity's cached resolution so the next request re-reads
// billing. Admin surface, used after plan changes.
func (s *Service) Evict(identityKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, identityKey)
}

func (s *Service) cached(key string) (models.Tier, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[key]
	if !ok || !s.clock.Now().Before(entry.expiresAt) {
		return models.Tier{}, false
	}
	return entry.tier, true
}

func (s *Service) lookup(ctx context.Context, key string) models.Tier {
	tier := s.resolveUpstream(ctx, key)

	s.mu.Lock()
	s.cache[key] = cachedTier{tier: tier, expiresAt: s.clock.Now().Add(s.cfg.TierCacheTTL)}
	s.mu.Unlock()

	return tier
}

func (s *Service) resolveUpstream(ctx context.Context, key string) models.Tier {
	if s.directory == nil {
		return s.defaultTier()
	}

	name, err := s.directory.TierFor(ctx, key)
	if err != nil {
		s.recordLookup("error")
		s.logger.Warn("billing lookup failed, assigning default tier",
			"identity", key,
			"error", err,
		)
		return s.defaultTier()
	}

	tier, ok := s.cfg.Tiers[name]
	if !ok {
		s.logger.Warn("billing returned unknown tier, assigning default",
			"identity", key,
			"tier", name,
		)
		return s.defaultTier()
	}
	return tier
}

func (s *Service) defaultTier() models.Tier {
	return s.cfg.Tiers[s.cfg.DefaultTier]
}

func (s *Service) recordLookup(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTierLookup(outcome)
	}
}

// Sweep removes expired cache entries, returning how many were dropped.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.cache {
		if !now.Before(entry.expiresAt) {
			delete(s.cache, key)
			removed++
		}
	}
	return removed, nil
}
