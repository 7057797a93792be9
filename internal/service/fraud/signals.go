package fraud

import (
	"fmt"
	"time"

	"turnstile/internal/models"
)

// finding is one signal's positive result before it becomes a Violation.
// retryAfter is the backoff hint in seconds; retryable signals set it, the
// 403-class signals leave it zero.
type finding struct {
	vtype      models.ViolationType
	message    string
	context    map[string]any
	retryAfter int
}

// roundAmountCents defines "round": whole hundreds of the major unit.
const roundAmountCents = 10_000

// checkFrequency fires when the identity's attempt count in the rolling
// window, including this attempt, exceeds the budget. Confirmation attempts
// run against the tighter confirmation budget.
func (s *Service) checkFrequency(req Request, snap *snapshot, now time.Time) *finding {
	max := s.cfg.Fraud.FrequencyMax
	if req.Confirmation {
		max = s.cfg.Fraud.ConfirmationMax
	}

	cutoff := now.Add(-s.cfg.Fraud.FrequencyWindow)
	count := countSince(snap.attempts, cutoff)
	if count < max {
		return nil
	}

	// A slot frees when the oldest in-window attempt ages out.
	retry := s.cfg.Fraud.FrequencyWindow
	if oldest := oldestSince(snap.attempts, cutoff); !oldest.IsZero() {
		retry = oldest.Add(s.cfg.Fraud.FrequencyWindow).Sub(now)
	}

	return &finding{
		vtype:      models.ViolationFrequencyExceeded,
		message:    fmt.Sprintf("%d payment attempts in %s exceeds the budget of %d", count+1, s.cfg.Fraud.FrequencyWindow, max),
		retryAfter: backoffSeconds(retry),
		context: map[string]any{
			"attempts":       count + 1,
			"window_seconds": int(s.cfg.Fraud.FrequencyWindow.Seconds()),
			"max_attempts":   max,
			"confirmation":   req.Confirmation,
		},
	}
}

// checkAmount fires on a single amount over the tier's ceiling, or when the
// rolling-window spend including this attempt crosses the rolling ceiling.
func (s *Service) checkAmount(req Request, snap *snapshot, now time.Time) *finding {
	ceiling := s.cfg.Fraud.CeilingFor(s.tierOf(req))

	if req.AmountCents > ceiling.SingleCents {
		return &finding{
			vtype:      models.ViolationAmountExceeded,
			message:    fmt.Sprintf("amount %d exceeds the single-transaction ceiling %d", req.AmountCents, ceiling.SingleCents),
			retryAfter: backoffSeconds(s.cfg.Fraud.AmountWindow),
			context: map[string]any{
				"amount_cents":  req.AmountCents,
				"ceiling_cents": ceiling.SingleCents,
				"kind":          "single",
			},
		}
	}

	rolling := req.AmountCents + sumSince(snap.attempts, now.Add(-s.cfg.Fraud.AmountWindow))
	if rolling > ceiling.RollingCents {
		return &finding{
			vtype:      models.ViolationAmountExceeded,
			message:    fmt.Sprintf("rolling spend %d exceeds the window ceiling %d", rolling, ceiling.RollingCents),
			retryAfter: backoffSeconds(s.cfg.Fraud.AmountWindow),
			context: map[string]any{
				"rolling_cents":  rolling,
				"ceiling_cents":  ceiling.RollingCents,
				"window_seconds": int(s.cfg.Fraud.AmountWindow.Seconds()),
				"kind":           "rolling",
			},
		}
	}
	return nil
}

// checkVelocity fires when the identity's recent attempt rate is a multiple
// of its own older baseline. New identities with no baseline never fire.
func (s *Service) checkVelocity(req Request, snap *snapshot, now time.Time) *finding {
	cfg := s.cfg.Fraud
	if len(snap.attempts)+1 < cfg.VelocityMinSamples {
		return nil
	}

	cutoff := now.Add(-cfg.VelocityWindow)
	recent := countSince(snap.attempts, cutoff) + 1 // include this attempt

	var older int
	oldest := now
	for _, a := range snap.attempts {
		if !a.At.After(cutoff) {
			older++
			if a.At.Before(oldest) {
				oldest = a.At
			}
		}
	}
	if older == 0 {
		return nil
	}

	baselineSpan := cutoff.Sub(oldest)
	if baselineSpan <= 0 {
		return nil
	}

	recentRate := float64(recent) / cfg.VelocityWindow.Seconds()
	baselineRate := float64(older) / baselineSpan.Seconds()
	if baselineRate <= 0 || recentRate < baselineRate*cfg.VelocityMultiplier {
		return nil
	}

	return &finding{
		vtype:   models.ViolationVelocityAnomaly,
		message: fmt.Sprintf("attempt rate %.3f/s is %.1fx the identity's baseline %.3f/s", recentRate, recentRate/baselineRate, baselineRate),
		context: map[string]any{
			"recent_attempts":   recent,
			"recent_rate":       recentRate,
			"baseline_rate":     baselineRate,
			"multiplier":        cfg.VelocityMultiplier,
			"window_seconds":    int(cfg.VelocityWindow.Seconds()),
		},
	}
}

// checkPattern fires on instrument cycling, device cycling, or ascending
// round-amount probing inside the pattern window.
func (s *Service) checkPattern(req Request, snap *snapshot, now time.Time) *finding {
	cfg := s.cfg.Fraud
	cutoff := now.Add(-cfg.PatternWindow)

	methods := make(map[string]struct{})
	devices := make(map[string]struct{})
	if req.Method.Fingerprint != "" {
		methods[req.Method.Fingerprint] = struct{}{}
	}
	if req.DeviceFingerprint != "" {
		devices[req.DeviceFingerprint] = struct{}{}
	}
	for _, a := range snap.attempts {
		if !a.At.After(cutoff) {
			continue
		}
		if a.MethodFingerprint != "" {
			methods[a.MethodFingerprint] = struct{}{}
		}
		if a.DeviceFingerprint != "" {
			devices[a.DeviceFingerprint] = struct{}{}
		}
	}

	if len(methods) >= cfg.PatternDistinctMethods {
		return &finding{
			vtype:   models.ViolationPatternSuspicious,
			message: fmt.Sprintf("%d distinct payment methods within %s", len(methods), cfg.PatternWindow),
			context: map[string]any{
				"distinct_methods": len(methods),
				"window_seconds":   int(cfg.PatternWindow.Seconds()),
				"kind":             "method_cycling",
			},
		}
	}
	if len(devices) >= cfg.PatternDistinctDevices {
		return &finding{
			vtype:   models.ViolationPatternSuspicious,
			message: fmt.Sprintf("%d distinct devices within %s", len(devices), cfg.PatternWindow),
			context: map[string]any{
				"distinct_devices": len(devices),
				"window_seconds":   int(cfg.PatternWindow.Seconds()),
				"kind":             "device_cycling",
			},
		}
	}

	if run := ascendingRoundRun(snap.attempts, req.AmountCents, cutoff); run >= cfg.PatternRoundAmounts {
		return &finding{
			vtype:   models.ViolationPatternSuspicious,
			message: fmt.Sprintf("%d consecutive ascending round amounts", run),
			context: map[string]any{
				"run_length":     run,
				"window_seconds": int(cfg.PatternWindow.Seconds()),
				"kind":           "round_amount_probing",
			},
		}
	}
	return nil
}

// checkGeographic fires when the request's country differs from every country
// in the identity's ledger history. No history or no country means no signal.
func (s *Service) checkGeographic(req Request, snap *snapshot, now time.Time) *finding {
	country := req.country()
	if country == "" {
		return nil
	}

	seen := false
	for _, a := range snap.attempts {
		if a.OriginCountry == "" {
			continue
		}
		seen = true
		if a.OriginCountry == country {
			return nil
		}
	}
	if !seen {
		return nil
	}

	return &finding{
		vtype:   models.ViolationGeographicAnomaly,
		message: fmt.Sprintf("request origin %s does not match any country in recent history", country),
		context: map[string]any{
			"origin_country": country,
		},
	}
}

// checkMethodAbuse fires when the attempt's instrument has been used by more
// distinct identities than allowed inside the abuse window.
func (s *Service) checkMethodAbuse(req Request, snap *snapshot, now time.Time) *finding {
	if req.Method.Fingerprint == "" {
		return nil
	}
	if snap.methodIdentities <= int64(s.cfg.Fraud.MethodAbuseMaxIdentities) {
		return nil
	}

	return &finding{
		vtype:      models.ViolationPaymentMethodAbuse,
		message:    fmt.Sprintf("payment method shared across %d identities exceeds the limit of %d", snap.methodIdentities, s.cfg.Fraud.MethodAbuseMaxIdentities),
		retryAfter: backoffSeconds(s.cfg.Fraud.MethodAbuseWindow),
		context: map[string]any{
			"distinct_identities": snap.methodIdentities,
			"max_identities":      s.cfg.Fraud.MethodAbuseMaxIdentities,
			"window_seconds":      int(s.cfg.Fraud.MethodAbuseWindow.Seconds()),
		},
	}
}

// tierOf resolves which risk ceiling applies. The guard resolves the tier
// before classification and passes it through the request context; absent
// that, the default tier's profile applies.
func (s *Service) tierOf(req Request) models.TierName {
	if req.Tier != "" {
		return req.Tier
	}
	return s.cfg.DefaultTier
}

// oldestSince returns the timestamp of the oldest attempt strictly after
// cutoff, or the zero time when none qualifies.
func oldestSince(attempts []*models.PaymentAttempt, cutoff time.Time) time.Time {
	var oldest time.Time
	for _, a := range attempts {
		if a.At.After(cutoff) && (oldest.IsZero() || a.At.Before(oldest)) {
			oldest = a.At
		}
	}
	return oldest
}

// backoffSeconds rounds a backoff duration up to whole seconds, never below
// one second.
func backoffSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// countSince counts attempts strictly after cutoff.
func countSince(attempts []*models.PaymentAttempt, cutoff time.Time) int {
	n := 0
	for _, a := range attempts {
		if a.At.After(cutoff) {
			n++
		}
	}
	return n
}

// sumSince totals attempt amounts strictly after cutoff.
func sumSince(attempts []*models.PaymentAttempt, cutoff time.Time) int64 {
	var total int64
	for _, a := range attempts {
		if a.At.After(cutoff) {
			total += a.AmountCents
		}
	}
	return total
}

// ascendingRoundRun measures the longest run of consecutive round, strictly
// ascending amounts ending at the current attempt. attempts are newest first.
func ascendingRoundRun(attempts []*models.PaymentAttempt, current int64, cutoff time.Time) int {
	if current%roundAmountCents != 0 || current == 0 {
		return 0
	}

	run := 1
	prev := current
	for _, a := range attempts {
		if !a.At.After(cutoff) {
			break
		}
		if a.AmountCents%roundAmountCents != 0 || a.AmountCents == 0 || a.AmountCents >= prev {
			break
		}
		run++
		prev = a.AmountCents
	}
	return run
}
