package gate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/checker"
	"turnstile/internal/config"
	"turnstile/internal/gate"
	"turnstile/internal/guard"
	"turnstile/internal/identity"
	"turnstile/internal/service/fraud"
	"turnstile/internal/service/tier"
	"turnstile/internal/service/windowlimit"
	"turnstile/internal/store/counter"
	"turnstile/internal/store/ledger"
	"turnstile/pkg/clock"
	"turnstile/pkg/platform/circuit"
	"turnstile/pkg/platform/middleware/requesttime"
)

type GateSuite struct {
	suite.Suite
	handler http.Handler
	clock   *clock.Virtual
	cfg     *config.Config
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.clock = clock.NewVirtual(time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC))
	s.cfg = config.DefaultConfig()
	s.handler = s.buildHandler(counter.NewInMemoryStore(counter.WithClock(s.clock)))
}

// buildHandler wires the full gate over in-memory stores, with request time
// pinned to the virtual clock.
func (s *GateSuite) buildHandler(counters windowlimit.CounterStore) http.Handler {
	limiter, err := windowlimit.New(counters, s.cfg)
	s.Require().NoError(err)

	tiers, err := tier.New(nil, s.cfg, tier.WithClock(s.clock))
	s.Require().NoError(err)

	chk, err := checker.New(nil, tiers, limiter)
	s.Require().NoError(err)

	classifier, err := fraud.New(ledger.NewInMemoryStore(ledger.WithClock(s.clock)), s.cfg)
	s.Require().NoError(err)

	paymentGuard, err := guard.New(chk, classifier)
	s.Require().NoError(err)

	g, err := gate.New(s.cfg, identity.NewResolver(""), chk,
		gate.WithPaymentGuard(paymentGuard),
		gate.WithProbeInterval(time.Hour),
	)
	s.Require().NoError(err)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	gated := g.Middleware(final)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gated.ServeHTTP(w, r.WithContext(requesttime.WithTime(r.Context(), s.clock.Now())))
	})
}

func (s *GateSuite) do(method, path, apiKey, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if apiKey != "" {
		req.Header.Set(identity.APIKeyHeader, apiKey)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// ============================================================
// API class
// ============================================================

// TestFreeTierHourlyWalk verifies the full quota walk: 100 requests pass
// with Remaining counting down from 99 to 0, and the 101st is denied with a
// Retry-After of the time left in the hour.
//
// Justification: this is the engine's core contract end to end, headers
// included; anything that breaks counting, header attachment, or the denial
// shape fails here.
func (s *GateSuite) TestFreeTierHourlyWalk() {
	for i := 1; i <= 100; i++ {
		rec := s.do(http.MethodGet, "/v1/bookings", "walk-key", "")
		s.Require().Equal(http.StatusOK, rec.Code, "request %d", i)
		s.Require().Equal(strconv.Itoa(100-i), rec.Header().Get("X-RateLimit-Remaining"))
		s.Require().Equal("100", rec.Header().Get("X-RateLimit-Limit"))
		s.Require().Equal("free", rec.Header().Get("X-RateLimit-Tier"))
	}

	rec := s.do(http.MethodGet, "/v1/bookings", "walk-key", "")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	s.Equal("1800", rec.Header().Get("Retry-After"))

	var body struct {
		Error   string `json:"error"`
		Details struct {
			Limit        int    `json:"limit"`
			CurrentUsage int    `json:"current_usage"`
			ResetTime    string `json:"reset_time"`
			Tier         string `json:"tier"`
			RetryAfter   int    `json:"retry_after"`
		} `json:"details"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.Equal(100, body.Details.Limit)
	s.Equal(100, body.Details.CurrentUsage)
	s.Equal("2026-08-24T11:00:00Z", body.Details.ResetTime)
	s.Equal("free", body.Details.Tier)
	s.Equal(1800, body.Details.RetryAfter)
}

// TestUnprotectedPassthrough verifies paths outside the protected prefixes
// are untouched.
func (s *GateSuite) TestUnprotectedPassthrough() {
	rec := s.do(http.MethodGet, "/healthz", "", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Header().Get("X-RateLimit-Limit"))
}

// TestIdentitiesIsolated verifies distinct API keys consume distinct quotas.
func (s *GateSuite) TestIdentitiesIsolated() {
	for i := 0; i < 3; i++ {
		s.do(http.MethodGet, "/v1/bookings", "key-a", "")
	}
	rec := s.do(http.MethodGet, "/v1/bookings", "key-b", "")
	s.Equal("99", rec.Header().Get("X-RateLimit-Remaining"))
}

// TestQuotaRefillsAtHourBoundary verifies the calendar bucket resets quota.
func (s *GateSuite) TestQuotaRefillsAtHourBoundary() {
	for i := 0; i < 100; i++ {
		s.do(http.MethodGet, "/v1/bookings", "boundary-key", "")
	}
	s.Equal(http.StatusTooManyRequests, s.do(http.MethodGet, "/v1/bookings", "boundary-key", "").Code)

	s.clock.Set(time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC))
	rec := s.do(http.MethodGet, "/v1/bookings", "boundary-key", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("99", rec.Header().Get("X-RateLimit-Remaining"))
}

// ============================================================
// Payment class
// ============================================================

// TestPaymentViolationRetryable verifies an over-ceiling payment is denied
// with a 429 and the violation message.
func (s *GateSuite) TestPaymentViolationRetryable() {
	rec := s.do(http.MethodPost, "/v1/payments/intents", "payer-key", `{"amount_cents": 600000}`)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("600", rec.Header().Get("Retry-After"), "amount backoff spans the rolling window")

	var body struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
}

// TestPaymentFrequencyDenialCarriesRetryAfter verifies a violation 429
// carries the Retry-After header and body hint even though the payment window
// alongside it still had quota.
//
// Justification: the window result attached to a violation denial is the one
// that admitted the request, so the backoff must come from the violation or a
// retryable 429 would tell the client nothing.
func (s *GateSuite) TestPaymentFrequencyDenialCarriesRetryAfter() {
	for i := 0; i < 10; i++ {
		rec := s.do(http.MethodPost, "/v1/payments/intents", "burst-key", `{"amount_cents": 1000}`)
		s.Require().Equal(http.StatusOK, rec.Code, "attempt %d", i+1)
	}

	rec := s.do(http.MethodPost, "/v1/payments/intents", "burst-key", `{"amount_cents": 1000}`)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	// All attempts share the pinned clock, so the oldest frees a slot one
	// full frequency window later.
	s.Equal("300", rec.Header().Get("Retry-After"))

	var body struct {
		Error   string `json:"error"`
		Details struct {
			RetryAfter int `json:"retry_after"`
		} `json:"details"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.Equal(300, body.Details.RetryAfter)
}

// TestPaymentViolationBlocked verifies a behavioral anomaly is a 403 with
// the request_blocked error.
func (s *GateSuite) TestPaymentViolationBlocked() {
	send := func(country string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/payments/intents", strings.NewReader(`{"amount_cents": 1000}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(identity.APIKeyHeader, "geo-key")
		req.Header.Set("X-Origin-Country", country)

		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		s.Require().Equal(http.StatusOK, send("DE").Code)
		s.clock.Advance(time.Minute)
	}

	rec := send("BR")
	s.Equal(http.StatusForbidden, rec.Code)

	var body struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("request_blocked", body.Error)
}

// TestPaymentBodyRestored verifies the gate's body peek leaves the payload
// readable by the business handler.
func (s *GateSuite) TestPaymentBodyRestored() {
	limiter, err := windowlimit.New(counter.NewInMemoryStore(counter.WithClock(s.clock)), s.cfg)
	s.Require().NoError(err)
	tiers, err := tier.New(nil, s.cfg, tier.WithClock(s.clock))
	s.Require().NoError(err)
	chk, err := checker.New(nil, tiers, limiter)
	s.Require().NoError(err)
	classifier, err := fraud.New(ledger.NewInMemoryStore(ledger.WithClock(s.clock)), s.cfg)
	s.Require().NoError(err)
	paymentGuard, err := guard.New(chk, classifier)
	s.Require().NoError(err)

	g, err := gate.New(s.cfg, identity.NewResolver(""), chk, gate.WithPaymentGuard(paymentGuard))
	s.Require().NoError(err)

	var seen string
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))
		seen = fmt.Sprintf("%v", payload["amount_cents"])
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/intents", strings.NewReader(`{"amount_cents": 2500}`))
	req.Header.Set(identity.APIKeyHeader, "body-key")
	rec := httptest.NewRecorder()
	g.Middleware(final).ServeHTTP(rec, req)

	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("2500", seen)
}

// TestPaymentFailsClosed verifies a store outage turns payment requests into
// 503s instead of admitting them.
func (s *GateSuite) TestPaymentFailsClosed() {
	s.handler = s.buildHandler(failingCounter{})

	rec := s.do(http.MethodPost, "/v1/payments/intents", "closed-key", `{"amount_cents": 1000}`)
	s.Equal(http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("service_unavailable", body.Error)
}

// ============================================================
// Degraded mode
// ============================================================

// TestDegradedModeServesLocally verifies that once the breaker opens, API
// requests are admitted by the local fallback limiter and marked degraded.
func (s *GateSuite) TestDegradedModeServesLocally() {
	s.handler = s.buildHandler(failingCounter{})

	// Five consecutive store failures trip the breaker; the requests
	// themselves still fail open.
	for i := 0; i < 5; i++ {
		rec := s.do(http.MethodGet, "/v1/bookings", "degraded-key", "")
		s.Require().Equal(http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodGet, "/v1/bookings", "degraded-key", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("degraded", rec.Header().Get("X-RateLimit-Status"))
}

// TestBreakerProbeRecovers verifies a probe request closes the breaker once
// the store answers again.
func (s *GateSuite) TestBreakerProbeRecovers() {
	breaker := circuit.New("test", circuit.WithSuccessThreshold(1))

	counters := counter.NewInMemoryStore(counter.WithClock(s.clock))
	limiter, err := windowlimit.New(counters, s.cfg)
	s.Require().NoError(err)
	tiers, err := tier.New(nil, s.cfg, tier.WithClock(s.clock))
	s.Require().NoError(err)
	chk, err := checker.New(nil, tiers, limiter)
	s.Require().NoError(err)

	g, err := gate.New(s.cfg, identity.NewResolver(""), chk,
		gate.WithBreaker(breaker),
		gate.WithProbeInterval(0),
	)
	s.Require().NoError(err)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := g.Middleware(final)

	// Trip the breaker by hand, then let the zero probe interval send the
	// next request down the primary path against a healthy store.
	for i := 0; i < 5; i++ {
		breaker.RecordFailure()
	}
	s.Require().True(breaker.IsOpen())

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.False(breaker.IsOpen())
}

type failingCounter struct{}

func (failingCounter) CheckAndIncr(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	return 0, false, context.DeadlineExceeded
}

func (failingCounter) Get(ctx context.Context, key string) (int64, error) {
	return 0, context.DeadlineExceeded
}

func (failingCounter) Reset(ctx context.Context, key string) error {
	return context.DeadlineExceeded
}
