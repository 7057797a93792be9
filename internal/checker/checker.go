// Package checker composes the request-gating pipeline for one identity:
// allowlist exemption, tier resolution, then window enforcement. The gate
// middleware and the payment guard both sit on top of this facade.
package checker

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/audit"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/internal/observability"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/middleware/requesttime"
)

// AllowlistStore answers whether an identity is exempt from window limiting.
type AllowlistStore interface {
	Match(ctx context.Context, identity models.Identity) (*models.AllowlistEntry, error)
}

// TierResolver resolves an identity's quota profile.
type TierResolver interface {
	Resolve(ctx context.Context, identity models.Identity) models.Tier
}

// WindowLimiter enforces calendar-window quotas.
type WindowLimiter interface {
	CheckAndIncrement(ctx context.Context, identity models.Identity, tier models.Tier, class models.EndpointClass) (*models.RateLimitResult, error)
	Status(ctx context.Context, identity models.Identity, tier models.Tier) (map[models.WindowType]*models.RateLimitResult, error)
}

// Checker is the gating facade.
type Checker struct {
	allowlist AllowlistStore
	tiers     TierResolver
	limiter   WindowLimiter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     observability.AuditPublisher
}

// Option configures the Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// WithAuditPublisher sets the audit event publisher.
func WithAuditPublisher(p observability.AuditPublisher) Option {
	return func(c *Checker) {
		c.audit = p
	}
}

// New creates the checker. The allowlist may be nil when no exemption store
// is configured; tier resolver and limiter are required.
func New(allowlist AllowlistStore, tiers TierResolver, limiter WindowLimiter, opts ...Option) (*Checker, error) {
	if tiers == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "tier resolver is required")
	}
	if limiter == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "window limiter is required")
	}

	c := &Checker{
		allowlist: allowlist,
		tiers:     tiers,
		limiter:   limiter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CheckRequest gates one request. Allowlisted identities bypass window
// enforcement entirely; everyone else consumes quota from the resolved
// tier's windows. A denial is reported in the result, not as an error;
// the error return is reserved for fail-closed store outages.
func (c *Checker) CheckRequest(ctx context.Context, identity models.Identity, class models.EndpointClass) (*models.RateLimitResult, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}

	tier := c.tiers.Resolve(ctx, identity)

	if entry := c.matchAllowlist(ctx, identity); entry != nil {
		if c.metrics != nil {
			c.metrics.RecordAllowlistBypass(entry.Type.String())
		}
		observability.LogAudit(ctx, c.logger, c.audit, audit.ActionAllowlistBypass,
			"identity", identity.Key(),
			"ip", identity.IP,
			"entry_type", entry.Type.String(),
			"reason", entry.Reason,
		)
		return bypassed(tier, class, requesttime.Now(ctx)), nil
	}

	result, err := c.limiter.CheckAndIncrement(ctx, identity, tier, class)
	if err != nil {
		return nil, err
	}

	if !result.Allowed {
		observability.LogAudit(ctx, c.logger, c.audit, audit.ActionRateLimitExceeded,
			"identity", identity.Key(),
			"ip", identity.IP,
			"tier", tier.Name.String(),
			"window", result.Window.String(),
		)
	}
	return result, nil
}

// Status reports the identity's current window usage without consuming
// quota.
func (c *Checker) Status(ctx context.Context, identity models.Identity) (map[models.WindowType]*models.RateLimitResult, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	tier := c.tiers.Resolve(ctx, identity)
	return c.limiter.Status(ctx, identity, tier)
}

// matchAllowlist returns the covering entry, or nil. An allowlist store
// outage resolves toward enforcement: the request is limited normally rather
// than waved through.
func (c *Checker) matchAllowlist(ctx context.Context, identity models.Identity) *models.AllowlistEntry {
	if c.allowlist == nil {
		return nil
	}
	entry, err := c.allowlist.Match(ctx, identity)
	if err != nil {
		c.logger.Warn("allowlist lookup failed, enforcing limits",
			"identity", identity.Key(),
			"error", err,
		)
		return nil
	}
	return entry
}

func bypassed(tier models.Tier, class models.EndpointClass, now time.Time) *models.RateLimitResult {
	limit := tier.LimitFor(models.WindowHourly)
	return &models.RateLimitResult{
		Allowed:   true,
		Bypassed:  true,
		Limit:     limit,
		Remaining: limit,
		Window:    models.WindowHourly,
		Class:     class,
		Tier:      tier.Name,
		ResetAt:   models.WindowHourly.NextReset(now),
	}
}
