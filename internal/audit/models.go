package audit

import "time"

// Event is emitted from gating logic to capture security-relevant outcomes.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Subject   string         `json:"subject,omitempty"` // identity key
	IP        string         `json:"ip,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Decision  string         `json:"decision,omitempty"` // allowed, denied, bypassed
	Reason    string         `json:"reason,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

const (
	ActionRateLimitExceeded = "rate_limit_exceeded"
	ActionViolationDetected = "violation_detected"
	ActionAllowlistBypass   = "allowlist_bypass"
	ActionAllowlistAdded    = "rate_limit_allowlist_added"
	ActionAllowlistRemoved  = "rate_limit_allowlist_removed"
	ActionCounterReset      = "rate_limit_reset"
	ActionTriggerFired      = "trigger_fired"
	ActionTriggerCleared    = "trigger_cleared"
	ActionFailOpen          = "enforcement_fail_open"
	ActionFailClosed        = "enforcement_fail_closed"
)
