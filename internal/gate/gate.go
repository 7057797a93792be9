// Package gate is the HTTP entry point of the engine: chi middleware that
// classifies each request against the protected prefixes, resolves its
// identity, runs window enforcement (plus payment classification for payment
// paths), and either forwards to the business handler with rate headers
// attached or short-circuits with a structured denial.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"turnstile/internal/config"
	"turnstile/internal/guard"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/circuit"
	"turnstile/pkg/platform/middleware/requesttime"
)

// maxPaymentBody bounds how much of a payment request body is inspected for
// classification inputs.
const maxPaymentBody = 64 << 10

// IdentityResolver derives the rate-limit subject from a request.
type IdentityResolver interface {
	FromRequest(req *http.Request) models.Identity
}

// RequestChecker gates API-class requests.
type RequestChecker interface {
	CheckRequest(ctx context.Context, identity models.Identity, class models.EndpointClass) (*models.RateLimitResult, error)
}

// PaymentGuard gates payment-class requests.
type PaymentGuard interface {
	CheckPaymentIntentRateLimit(ctx context.Context, req guard.PaymentRequest) (*guard.Decision, error)
	CheckPaymentConfirmationRateLimit(ctx context.Context, req guard.PaymentRequest) (*guard.Decision, error)
}

// UsageRecorder persists gated-request outcomes off the response path.
type UsageRecorder interface {
	RecordUsage(record *models.UsageRecord)
}

// DeviceFingerprinter hashes a user agent into a stable device identifier.
type DeviceFingerprinter interface {
	Compute(userAgentString string) string
}

// Gate is the request-gating middleware.
type Gate struct {
	cfg      *config.Config
	resolver IdentityResolver
	checker  RequestChecker
	guard    PaymentGuard
	recorder UsageRecorder
	devices  DeviceFingerprinter
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// breaker trips after consecutive shared-store failures; while open, the
	// gate serves from the local fallback limiter instead of hammering the
	// store, probing the primary path at most once per probe interval.
	breaker       *circuit.Breaker
	fallback      *rate.Limiter
	probeInterval time.Duration

	mu        sync.Mutex
	lastProbe time.Time
}

// Option configures the Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithPaymentGuard enables payment-class gating.
func WithPaymentGuard(pg PaymentGuard) Option {
	return func(g *Gate) {
		g.guard = pg
	}
}

// WithUsageRecorder sets the async usage recorder.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(g *Gate) {
		g.recorder = r
	}
}

// WithDeviceFingerprinter sets the device hash source for payment
// classification.
func WithDeviceFingerprinter(d DeviceFingerprinter) Option {
	return func(g *Gate) {
		g.devices = d
	}
}

// WithBreaker overrides the degraded-mode circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gate) {
		g.breaker = b
	}
}

// WithProbeInterval sets how often an open breaker lets a request probe the
// primary path.
func WithProbeInterval(d time.Duration) Option {
	return func(g *Gate) {
		g.probeInterval = d
	}
}

// New creates the gate.
func New(cfg *config.Config, resolver IdentityResolver, checker RequestChecker, opts ...Option) (*Gate, error) {
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "config is required")
	}
	if resolver == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "identity resolver is required")
	}
	if checker == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "request checker is required")
	}

	g := &Gate{
		cfg:      cfg,
		resolver: resolver,
		checker:  checker,
		logger:   slog.Default(),
		breaker:  circuit.New("gate-store"),
		// Process-level smoothing cap while the shared store is unreachable.
		fallback:      rate.NewLimiter(rate.Limit(float64(cfg.Windows.FailOpenLimit)/3600), cfg.Windows.FailOpenLimit/10+1),
		probeInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Middleware returns the chi middleware. Unprotected paths pass through
// untouched.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class, protected := g.classify(r.URL.Path)
		if !protected {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		identity := g.resolver.FromRequest(r)

		if g.degraded() {
			g.serveDegraded(w, r, next, identity, class, start)
			return
		}

		switch class {
		case models.ClassPayment:
			g.servePayment(w, r, next, identity, start)
		default:
			g.serveAPI(w, r, next, identity, start)
		}
	})
}

func (g *Gate) serveAPI(w http.ResponseWriter, r *http.Request, next http.Handler, identity models.Identity, start time.Time) {
	result, err := g.checker.CheckRequest(r.Context(), identity, models.ClassAPI)
	if err != nil {
		// API enforcement never blocks: anything unexpected resolves to
		// allow, visible only in the logs.
		g.recordStoreOutcome(false)
		g.logger.Warn("gate check failed, allowing request",
			"identity", identity.Key(),
			"path", r.URL.Path,
			"error", err,
		)
		g.finish(w, r, next, identity, models.ClassAPI, nil, start)
		return
	}
	g.recordStoreOutcome(!result.Degraded)

	if !result.Allowed {
		g.deny(w, r, identity, models.ClassAPI, result, nil, start)
		return
	}
	g.finish(w, r, next, identity, models.ClassAPI, result, start)
}

func (g *Gate) servePayment(w http.ResponseWriter, r *http.Request, next http.Handler, identity models.Identity, start time.Time) {
	if g.guard == nil {
		// No guard wired: payment paths degrade to plain window limiting.
		g.serveAPI(w, r, next, identity, start)
		return
	}

	req := g.paymentRequest(r, identity)
	check := g.guard.CheckPaymentIntentRateLimit
	if isConfirmationPath(r.URL.Path) {
		check = g.guard.CheckPaymentConfirmationRateLimit
	}

	decision, err := check(r.Context(), req)
	if err != nil {
		// Payment enforcement fails closed.
		g.recordStoreOutcome(false)
		g.logger.Error("payment gate unavailable, failing closed",
			"identity", identity.Key(),
			"path", r.URL.Path,
			"error", err,
		)
		writeUnavailable(w)
		g.recordDecision(models.ClassPayment, "deny", start)
		g.recordUsage(r, identity, http.StatusServiceUnavailable, start)
		return
	}
	g.recordStoreOutcome(decision.RateLimit == nil || !decision.RateLimit.Degraded)

	if !decision.Allowed {
		g.deny(w, r, identity, models.ClassPayment, decision.RateLimit, decision.Violation, start)
		return
	}
	g.finish(w, r, next, identity, models.ClassPayment, decision.RateLimit, start)
}

// serveDegraded handles requests while the breaker is open: the shared store
// is not consulted, and a local token bucket provides coarse protection.
func (g *Gate) serveDegraded(w http.ResponseWriter, r *http.Request, next http.Handler, identity models.Identity, class models.EndpointClass, start time.Time) {
	w.Header().Set("X-RateLimit-Status", "degraded")

	if !g.fallback.Allow() {
		now := requesttime.Now(r.Context())
		result := &models.RateLimitResult{
			Allowed:    false,
			Degraded:   true,
			Limit:      g.cfg.Windows.FailOpenLimit,
			Window:     models.WindowHourly,
			Class:      class,
			Tier:       g.cfg.DefaultTier,
			ResetAt:    models.WindowHourly.NextReset(now),
			RetryAfter: 1,
		}
		g.deny(w, r, identity, class, result, nil, start)
		return
	}

	g.finish(w, r, next, identity, class, nil, start)
}

// finish runs the business handler with rate headers attached and records
// usage after the response is determined.
func (g *Gate) finish(w http.ResponseWriter, r *http.Request, next http.Handler, identity models.Identity, class models.EndpointClass, result *models.RateLimitResult, start time.Time) {
	if result != nil {
		setRateHeaders(w.Header(), result)
	}

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(sw, r)

	outcome := "allow"
	if result != nil && result.Bypassed {
		outcome = "bypass"
	}
	g.recordDecision(class, outcome, start)
	g.recordUsage(r, identity, sw.status, start)
}

// deny short-circuits with the structured denial response.
func (g *Gate) deny(w http.ResponseWriter, r *http.Request, identity models.Identity, class models.EndpointClass, result *models.RateLimitResult, violation *models.Violation, start time.Time) {
	status := writeDenial(w, result, violation)
	g.recordDecision(class, "deny", start)
	g.recordUsage(r, identity, status, start)
}

// classify matches the path against the protected prefixes. Payment prefixes
// are checked first so nested payment routes classify correctly.
func (g *Gate) classify(path string) (models.EndpointClass, bool) {
	for _, prefix := range g.cfg.Prefixes.Payment {
		if strings.HasPrefix(path, prefix) {
			return models.ClassPayment, true
		}
	}
	for _, prefix := range g.cfg.Prefixes.API {
		if strings.HasPrefix(path, prefix) {
			return models.ClassAPI, true
		}
	}
	return "", false
}

// paymentEnvelope is the subset of a payment request body the classifier
// needs. Unknown fields and non-JSON bodies are ignored.
type paymentEnvelope struct {
	AmountCents   int64                    `json:"amount_cents"`
	PaymentMethod models.PaymentMethodInfo `json:"payment_method"`
}

// paymentRequest assembles the classification inputs from the request. The
// body is peeked and restored so the business handler still sees it.
func (g *Gate) paymentRequest(r *http.Request, identity models.Identity) guard.PaymentRequest {
	req := guard.PaymentRequest{
		Identity:      identity,
		OriginCountry: r.Header.Get("X-Origin-Country"),
	}
	if g.devices != nil {
		req.DeviceFingerprint = g.devices.Compute(r.UserAgent())
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPaymentBody))
	if err != nil {
		return req
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var envelope paymentEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		req.AmountCents = envelope.AmountCents
		req.Method = envelope.PaymentMethod
	}
	return req
}

// degraded reports whether this request should be served from the local
// fallback. While the breaker is open, one request per probe interval is let
// through to test whether the store has recovered.
func (g *Gate) degraded() bool {
	if !g.breaker.IsOpen() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if time.Since(g.lastProbe) >= g.probeInterval {
		g.lastProbe = time.Now()
		return false
	}
	return true
}

// recordStoreOutcome feeds the breaker and flips the degraded-mode gauge on
// state transitions.
func (g *Gate) recordStoreOutcome(healthy bool) {
	if healthy {
		_, change := g.breaker.RecordSuccess()
		if change.Closed {
			g.logger.Info("shared store recovered, leaving degraded mode")
			if g.metrics != nil {
				g.metrics.SetDegraded(false)
			}
		}
		return
	}

	_, change := g.breaker.RecordFailure()
	if change.Opened {
		g.mu.Lock()
		g.lastProbe = time.Now()
		g.mu.Unlock()
		g.logger.Error("shared store failing, entering degraded mode")
		if g.metrics != nil {
			g.metrics.SetDegraded(true)
		}
	}
}

func (g *Gate) recordDecision(class models.EndpointClass, outcome string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordDecision(class.String(), outcome, time.Since(start))
	}
}

func (g *Gate) recordUsage(r *http.Request, identity models.Identity, status int, start time.Time) {
	if g.recorder == nil {
		return
	}
	record, err := models.NewUsageRecord(identity, r.URL.Path, r.Method, status, time.Since(start), requesttime.Now(r.Context()))
	if err != nil {
		return
	}
	g.recorder.RecordUsage(record)
}

func isConfirmationPath(path string) bool {
	return strings.HasSuffix(strings.TrimRight(path, "/"), "/confirm")
}

// statusWriter captures the handler's status code for usage recording.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
