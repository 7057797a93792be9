// Package guard fronts payment traffic with both enforcement layers: the
// calendar-window limiter and the violation classifier. Payment endpoints
// fail closed, so any enforcement outage surfaces as an error for the
// transport to turn into a 503.
package guard

import (
	"context"
	"log/slog"

	"turnstile/internal/audit"
	"turnstile/internal/models"
	"turnstile/internal/observability"
	"turnstile/internal/service/fraud"
	dErrors "turnstile/pkg/domain-errors"
)

// RequestChecker gates requests through allowlist, tier, and window limits.
type RequestChecker interface {
	CheckRequest(ctx context.Context, identity models.Identity, class models.EndpointClass) (*models.RateLimitResult, error)
	Status(ctx context.Context, identity models.Identity) (map[models.WindowType]*models.RateLimitResult, error)
}

// Classifier evaluates payment attempts for violations.
type Classifier interface {
	Classify(ctx context.Context, req fraud.Request) (*models.Violation, error)
	RecordPaymentResult(ctx context.Context, identity models.Identity, amountCents int64, status models.PaymentStatus, failureReason string, method models.PaymentMethodInfo, deviceFingerprint, originCountry string) error
}

// CooldownTracker throttles alert side effects.
type CooldownTracker interface {
	ShouldTrigger(ctx context.Context, trigger models.TriggerType) (bool, error)
	RecordTrigger(ctx context.Context, trigger models.TriggerType) error
}

// ViolationRecorder persists violations off the request path.
type ViolationRecorder interface {
	RecordViolation(violation *models.Violation)
}

// PaymentRequest carries one payment attempt into the guard.
type PaymentRequest struct {
	Identity          models.Identity
	AmountCents       int64
	Method            models.PaymentMethodInfo
	DeviceFingerprint string
	OriginCountry     string
}

// Decision is the guard's verdict on a payment attempt. At most one denial
// reason is set: a rate limit result with Allowed false, or a violation.
type Decision struct {
	Allowed   bool
	RateLimit *models.RateLimitResult
	Violation *models.Violation
}

// Guard is the payment gating facade.
type Guard struct {
	checker    RequestChecker
	classifier Classifier
	cooldowns  CooldownTracker
	recorder   ViolationRecorder
	logger     *slog.Logger
	audit      observability.AuditPublisher
}

// Option configures the Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithCooldowns sets the alert cooldown tracker.
func WithCooldowns(c CooldownTracker) Option {
	return func(g *Guard) {
		g.cooldowns = c
	}
}

// WithRecorder sets the async violation recorder.
func WithRecorder(r ViolationRecorder) Option {
	return func(g *Guard) {
		g.recorder = r
	}
}

// WithAuditPublisher sets the audit event publisher.
func WithAuditPublisher(p observability.AuditPublisher) Option {
	return func(g *Guard) {
		g.audit = p
	}
}

// New creates the payment guard.
func New(checker RequestChecker, classifier Classifier, opts ...Option) (*Guard, error) {
	if checker == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "request checker is required")
	}
	if classifier == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "classifier is required")
	}

	g := &Guard{
		checker:    checker,
		classifier: classifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CheckPaymentIntentRateLimit gates a payment-initiation attempt.
func (g *Guard) CheckPaymentIntentRateLimit(ctx context.Context, req PaymentRequest) (*Decision, error) {
	return g.check(ctx, req, false)
}

// CheckPaymentConfirmationRateLimit gates a payment-confirmation attempt,
// which runs against the tighter confirmation frequency budget.
func (g *Guard) CheckPaymentConfirmationRateLimit(ctx context.Context, req PaymentRequest) (*Decision, error) {
	return g.check(ctx, req, true)
}

// check runs the window limiter first, then the classifier. The limiter
// answers cheaply from a counter; classification reads the full ledger, so
// a rate-limited attempt never pays for it.
func (g *Guard) check(ctx context.Context, req PaymentRequest, confirmation bool) (*Decision, error) {
	if req.Identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if req.AmountCents < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be negative")
	}

	limit, err := g.checker.CheckRequest(ctx, req.Identity, models.ClassPayment)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		return &Decision{Allowed: false, RateLimit: limit}, nil
	}

	violation, err := g.classifier.Classify(ctx, fraud.Request{
		Identity:          req.Identity,
		AmountCents:       req.AmountCents,
		Tier:              limit.Tier,
		Method:            req.Method,
		DeviceFingerprint: req.DeviceFingerprint,
		OriginCountry:     req.OriginCountry,
		Confirmation:      confirmation,
	})
	if err != nil {
		// Payment enforcement fails closed.
		return nil, err
	}
	if violation == nil {
		return &Decision{Allowed: true, RateLimit: limit}, nil
	}

	if g.recorder != nil {
		g.recorder.RecordViolation(violation)
	}
	g.alert(ctx, violation)

	return &Decision{Allowed: false, RateLimit: limit, Violation: violation}, nil
}

// GetRateLimitStatus reports the identity's payment window usage without
// consuming quota.
func (g *Guard) GetRateLimitStatus(ctx context.Context, identity models.Identity) (map[models.WindowType]*models.RateLimitResult, error) {
	return g.checker.Status(ctx, identity)
}

// RecordPaymentResult feeds a resolved payment outcome back into the
// classifier's ledger.
func (g *Guard) RecordPaymentResult(ctx context.Context, req PaymentRequest, status models.PaymentStatus, failureReason string) error {
	if req.Identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if !status.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid payment status")
	}
	return g.classifier.RecordPaymentResult(ctx, req.Identity, req.AmountCents, status, failureReason, req.Method, req.DeviceFingerprint, req.OriginCountry)
}

// alert emits the violation audit event, throttled per trigger type so a
// burst of violations produces one downstream alert per cooldown interval.
// Behavioral anomalies escalate on the critical-security trigger.
func (g *Guard) alert(ctx context.Context, violation *models.Violation) {
	trigger := models.TriggerPaymentChange
	if !violation.Type.Retryable() {
		trigger = models.TriggerCriticalSecurity
	}

	if g.cooldowns != nil {
		ok, err := g.cooldowns.ShouldTrigger(ctx, trigger)
		if err != nil {
			g.logger.Warn("cooldown check failed, emitting alert anyway",
				"trigger", trigger,
				"error", err,
			)
		} else if !ok {
			return
		}
	}

	observability.LogAudit(ctx, g.logger, g.audit, audit.ActionViolationDetected,
		"identity", violation.Identity,
		"ip", violation.IP,
		"violation_type", violation.Type.String(),
		"severity", string(violation.Severity),
		"trigger", trigger.String(),
	)

	if g.cooldowns != nil {
		if err := g.cooldowns.RecordTrigger(ctx, trigger); err != nil {
			g.logger.Warn("failed to record trigger firing", "trigger", trigger, "error", err)
		}
	}
}
