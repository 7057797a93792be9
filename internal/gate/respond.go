package gate

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"turnstile/internal/models"
	"turnstile/pkg/platform/httputil"
)

// denialBody is the structured denial response contract.
type denialBody struct {
	Error   string        `json:"error"`
	Message string        `json:"message"`
	Details denialDetails `json:"details"`
}

type denialDetails struct {
	Limit         int    `json:"limit"`
	WindowSeconds int    `json:"window_seconds"`
	CurrentUsage  int    `json:"current_usage"`
	ResetTime     string `json:"reset_time"`
	Tier          string `json:"tier"`
	RetryAfter    int    `json:"retry_after,omitempty"`
}

// setRateHeaders attaches the rate-limit contract to a response.
func setRateHeaders(h http.Header, result *models.RateLimitResult) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	h.Set("X-RateLimit-Tier", result.Tier.String())
}

// writeDenial writes the short-circuit response for a denied request and
// returns the status code used. Violations that clear on their own are 429s;
// behavioral anomalies are 403s.
func writeDenial(w http.ResponseWriter, result *models.RateLimitResult, violation *models.Violation) int {
	retryAfter := 0
	if result != nil {
		setRateHeaders(w.Header(), result)
		retryAfter = result.RetryAfter
	}

	status := http.StatusTooManyRequests
	body := denialBody{
		Error:   "rate_limit_exceeded",
		Message: "rate limit exceeded",
	}

	if violation != nil {
		body.Message = violation.Message
		// A violation denial arrives alongside the window result that
		// admitted the request, so the backoff hint comes from the
		// violation, not the window.
		if violation.RetryAfter > retryAfter {
			retryAfter = violation.RetryAfter
		}
		if !violation.Type.Retryable() {
			status = http.StatusForbidden
			body.Error = "request_blocked"
			retryAfter = 0
		}
	} else if result != nil {
		body.Message = fmt.Sprintf("%s rate limit of %d requests exceeded", result.Window, result.Limit)
	}

	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	if result != nil {
		body.Details = denialDetails{
			Limit:         result.Limit,
			WindowSeconds: result.Window.Seconds(),
			CurrentUsage:  result.CurrentUsage,
			ResetTime:     result.ResetAt.UTC().Format(time.RFC3339),
			Tier:          result.Tier.String(),
			RetryAfter:    retryAfter,
		}
	}

	httputil.WriteJSON(w, status, body)
	return status
}

// writeUnavailable writes the payment fail-closed response.
func writeUnavailable(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "5")
	httputil.WriteJSON(w, http.StatusServiceUnavailable, denialBody{
		Error:   "service_unavailable",
		Message: "enforcement temporarily unavailable, retry shortly",
		Details: denialDetails{RetryAfter: 5},
	})
}
