// Package fraud classifies payment attempts against the identity's recent
// activity ledger. Six signals are evaluated in fixed precedence order and at
// most one violation is attached to an attempt, so a burst that trips several
// heuristics still produces a single, stable denial reason.
package fraud

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/internal/service/fraud/tracer"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/middleware/requesttime"
)

// LedgerStore is the activity ledger dependency, satisfied by store/ledger
// implementations.
type LedgerStore interface {
	Append(ctx context.Context, identityKey string, attempt *models.PaymentAttempt, maxEntries int, ttl time.Duration) error
	Recent(ctx context.Context, identityKey string, limit int) ([]*models.PaymentAttempt, error)
	BindMethod(ctx context.Context, methodFingerprint, identityKey string, ttl time.Duration) (int64, error)
}

// Request carries one payment attempt into classification.
type Request struct {
	Identity    models.Identity
	AmountCents int64
	// Tier selects the risk profile's amount ceilings; empty means the
	// default tier's profile.
	Tier   models.TierName
	Method models.PaymentMethodInfo
	// DeviceFingerprint is the stable device hash, empty when unknown.
	DeviceFingerprint string
	// OriginCountry is where the request came from (ISO 3166-1 alpha-2),
	// empty when unknown. Falls back to the instrument's issuing country.
	OriginCountry string
	// Confirmation applies the tighter confirmation frequency budget.
	Confirmation bool
}

func (r Request) country() string {
	if r.OriginCountry != "" {
		return r.OriginCountry
	}
	return r.Method.Country
}

// Service is the violation classifier.
type Service struct {
	ledger  LedgerStore
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
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

// WithTracer sets the span source.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New creates the classifier.
func New(ledger LedgerStore, cfg *config.Config, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "ledger store is required")
	}
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "config is required")
	}

	svc := &Service{
		ledger: ledger,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Classify evaluates one payment attempt. It returns the single
// highest-precedence violation, or nil when the attempt is clean. The attempt
// is recorded in the ledger either way: denied attempts are exactly the
// behavior later signals need to see.
//
// A ledger outage surfaces as CodeStoreUnavailable; the caller's failure
// policy decides what that means for the request.
func (s *Service) Classify(ctx context.Context, req Request) (*models.Violation, error) {
	now := requesttime.Now(ctx)
	identityKey := req.Identity.Key()

	ctx, span := s.tracer.Start(ctx, tracer.SpanClassify,
		tracer.String(tracer.AttrIdentity, identityKey),
		tracer.Int64(tracer.AttrAmountCents, req.AmountCents),
	)

	snap, err := s.gatherSnapshot(ctx, req, identityKey)
	if err != nil {
		span.End(err)
		return nil, err
	}
	span.SetAttributes(tracer.Int64(tracer.AttrLedgerSize, int64(len(snap.attempts))))

	violation := s.evaluate(ctx, req, snap, now)

	if err := s.appendAttempt(ctx, req, identityKey, now); err != nil {
		s.logger.Warn("ledger append failed, attempt not recorded",
			"identity", identityKey,
			"error", err,
		)
	}

	if violation != nil {
		span.SetAttributes(tracer.String(tracer.AttrViolation, violation.Type.String()))
		if s.metrics != nil {
			s.metrics.RecordViolation(violation.Type.String())
		}
		s.logger.Warn("payment violation detected",
			"identity", identityKey,
			"violation", violation.Type,
			"severity", violation.Severity,
			"amount_cents", req.AmountCents,
		)
	}

	span.End(nil)
	return violation, nil
}

// evaluate runs the signals in precedence order; first match wins.
func (s *Service) evaluate(ctx context.Context, req Request, snap *snapshot, now time.Time) *models.Violation {
	checks := []struct {
		span   string
		signal func(Request, *snapshot, time.Time) *finding
	}{
		{tracer.SpanFrequency, s.checkFrequency},
		{tracer.SpanAmount, s.checkAmount},
		{tracer.SpanVelocity, s.checkVelocity},
		{tracer.SpanPattern, s.checkPattern},
		{tracer.SpanGeographic, s.checkGeographic},
		{tracer.SpanMethodAbuse, s.checkMethodAbuse},
	}

	for _, check := range checks {
		_, span := s.tracer.Start(ctx, check.span)
		f := check.signal(req, snap, now)
		span.SetAttributes(tracer.Bool(tracer.AttrFired, f != nil))
		span.End(nil)

		if f == nil {
			continue
		}

		violation, err := models.NewViolation(f.vtype, req.Identity, f.message, f.context, now)
		if err != nil {
			// Only reachable with a zero identity, which the guard rejects
			// earlier.
			s.logger.Error("violation construction failed", "error", err)
			return nil
		}
		violation.RetryAfter = f.retryAfter
		return violation
	}
	return nil
}

// RecordPaymentResult appends a resolved attempt to the ledger so later
// classifications see the outcome, and keeps the instrument index current.
func (s *Service) RecordPaymentResult(ctx context.Context, identity models.Identity, amountCents int64, status models.PaymentStatus, failureReason string, method models.PaymentMethodInfo, deviceFingerprint, originCountry string) error {
	now := requesttime.Now(ctx)

	attempt, err := models.NewPaymentAttempt(identity, amountCents, status, now)
	if err != nil {
		return err
	}
	attempt.FailureReason = failureReason
	attempt.MethodFingerprint = method.Fingerprint
	attempt.DeviceFingerprint = deviceFingerprint
	attempt.OriginCountry = originCountry
	if attempt.OriginCountry == "" {
		attempt.OriginCountry = method.Country
	}

	identityKey := identity.Key()
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.Fraud.LedgerTimeout)
	defer cancel()

	if err := s.ledger.Append(storeCtx, identityKey, attempt, s.cfg.Fraud.LedgerSize, s.cfg.Fraud.LedgerTTL); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "record payment result")
	}
	if method.Fingerprint != "" {
		if _, err := s.ledger.BindMethod(storeCtx, method.Fingerprint, identityKey, s.cfg.Fraud.MethodAbuseWindow); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "bind payment method")
		}
	}
	return nil
}

// appendAttempt records the classified attempt as initiated.
func (s *Service) appendAttempt(ctx context.Context, req Request, identityKey string, now time.Time) error {
	attempt, err := models.NewPaymentAttempt(req.Identity, req.AmountCents, models.PaymentInitiated, now)
	if err != nil {
		return err
	}
	attempt.MethodFingerprint = req.Method.Fingerprint
	attempt.DeviceFingerprint = req.DeviceFingerprint
	attempt.OriginCountry = req.country()

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.Fraud.LedgerTimeout)
	defer cancel()
	return s.ledger.Append(storeCtx, identityKey, attempt, s.cfg.Fraud.LedgerSize, s.cfg.Fraud.LedgerTTL)
}
