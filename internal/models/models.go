package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "turnstile/pkg/domain-errors"
)

// EndpointClass partitions gated traffic for limit policy and failure policy.
type EndpointClass string

const (
	// ClassAPI: general public API traffic under the protected prefix.
	ClassAPI EndpointClass = "api"
	// ClassPayment: payment-initiation traffic, additionally fraud-classified.
	ClassPayment EndpointClass = "payment"
)

func (c EndpointClass) IsValid() bool {
	return c == ClassAPI || c == ClassPayment
}

func (c EndpointClass) String() string {
	return string(c)
}

// WindowType identifies a counting window aligned to calendar boundaries.
type WindowType string

const (
	WindowHourly WindowType = "hourly"
	WindowDaily  WindowType = "daily"
)

func (w WindowType) IsValid() bool {
	return w == WindowHourly || w == WindowDaily
}

func (w WindowType) String() string {
	return string(w)
}

// BucketSuffix returns the deterministic key suffix for the bucket containing t.
// Buckets are computed in UTC so every process derives identical keys.
func (w WindowType) BucketSuffix(t time.Time) string {
	if w == WindowDaily {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01-02-15")
}

// BucketStart returns the beginning of the bucket containing t.
func (w WindowType) BucketStart(t time.Time) time.Time {
	u := t.UTC()
	if w == WindowDaily {
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), 0, 0, 0, time.UTC)
}

// NextReset returns the start of the bucket after the one containing t.
// This is the value surfaced in X-RateLimit-Reset and Retry-After.
func (w WindowType) NextReset(t time.Time) time.Time {
	if w == WindowDaily {
		return w.BucketStart(t).AddDate(0, 0, 1)
	}
	return w.BucketStart(t).Add(time.Hour)
}

// Duration returns the bucket length, also used as counter TTL.
func (w WindowType) Duration() time.Duration {
	if w == WindowDaily {
		return 24 * time.Hour
	}
	return time.Hour
}

// Seconds returns the bucket length in whole seconds for response bodies.
func (w WindowType) Seconds() int {
	return int(w.Duration() / time.Second)
}

// TierName identifies a quota profile.
type TierName string

const (
	TierFree       TierName = "free"
	TierBasic      TierName = "basic"
	TierPremium    TierName = "premium"
	TierEnterprise TierName = "enterprise"
)

func (t TierName) IsValid() bool {
	switch t {
	case TierFree, TierBasic, TierPremium, TierEnterprise:
		return true
	}
	return false
}

func (t TierName) String() string {
	return string(t)
}

// Tier is a named quota profile resolved per identity.
type Tier struct {
	Name        TierName `json:"name"`
	HourlyLimit int      `json:"hourly_limit"`
	DailyLimit  int      `json:"daily_limit"`
}

// LimitFor returns the quota for the given window type.
func (t Tier) LimitFor(w WindowType) int {
	if w == WindowDaily {
		return t.DailyLimit
	}
	return t.HourlyLimit
}

// Identity is the subject being rate limited, derived fresh per request.
// At least one of APIKeyID, UserID, or IP must be present.
type Identity struct {
	APIKeyID string `json:"api_key_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// NewIdentity validates that the identity names at least one subject.
func NewIdentity(apiKeyID, userID, ip string) (Identity, error) {
	if apiKeyID == "" && userID == "" && ip == "" {
		return Identity{}, dErrors.New(dErrors.CodeInvariantViolation, "identity must carry an api key, user id, or ip")
	}
	return Identity{APIKeyID: apiKeyID, UserID: userID, IP: ip}, nil
}

// Subject returns the strongest available subject for key derivation.
// Precedence: api key, then user, then ip. API keys are the billing anchor,
// so an authenticated key always buckets independently of the caller's network.
func (i Identity) Subject() (KeyPrefix, string) {
	if i.APIKeyID != "" {
		return KeyPrefixAPIKey, i.APIKeyID
	}
	if i.UserID != "" {
		return KeyPrefixUser, i.UserID
	}
	return KeyPrefixIP, i.IP
}

// Key returns the stable storage key for this identity.
func (i Identity) Key() string {
	prefix, value := i.Subject()
	return NewIdentityKey(prefix, value)
}

// IsZero reports whether no subject is present.
func (i Identity) IsZero() bool {
	return i.APIKeyID == "" && i.UserID == "" && i.IP == ""
}

// RateLimitResult is the outcome of a window check.
type RateLimitResult struct {
	Allowed      bool          `json:"allowed"`
	Bypassed     bool          `json:"bypassed,omitempty"`
	Degraded     bool          `json:"degraded,omitempty"`
	Limit        int           `json:"limit"`
	Remaining    int           `json:"remaining"`
	CurrentUsage int           `json:"current_usage"`
	Window       WindowType    `json:"window"`
	Class        EndpointClass `json:"class,omitempty"`
	Tier         TierName      `json:"tier"`
	ResetAt      time.Time     `json:"reset_at"`
	RetryAfter   int           `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Severity grades how suspicious a violation is for triage purposes.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ViolationType is the categorical reason a payment request was denied.
// Exactly one type is attached to a denied request, chosen by precedence.
type ViolationType string

const (
	ViolationFrequencyExceeded  ViolationType = "frequency_exceeded"
	ViolationAmountExceeded     ViolationType = "amount_exceeded"
	ViolationVelocityAnomaly    ViolationType = "velocity_anomaly"
	ViolationPatternSuspicious  ViolationType = "pattern_suspicious"
	ViolationGeographicAnomaly  ViolationType = "geographic_anomaly"
	ViolationPaymentMethodAbuse ViolationType = "payment_method_abuse"
)

func (t ViolationType) IsValid() bool {
	switch t {
	case ViolationFrequencyExceeded, ViolationAmountExceeded, ViolationVelocityAnomaly,
		ViolationPatternSuspicious, ViolationGeographicAnomaly, ViolationPaymentMethodAbuse:
		return true
	}
	return false
}

func (t ViolationType) String() string {
	return string(t)
}

// Retryable reports whether the client may retry after backing off.
// Frequency, amount, and method-reuse denials clear on their own; the
// behavioral anomalies require manual review before the subject is unblocked.
func (t ViolationType) Retryable() bool {
	switch t {
	case ViolationFrequencyExceeded, ViolationAmountExceeded, ViolationPaymentMethodAbuse:
		return true
	}
	return false
}

// Severity returns the triage grade for this violation type.
func (t ViolationType) Severity() Severity {
	switch t {
	case ViolationFrequencyExceeded:
		return SeverityMedium
	case ViolationGeographicAnomaly:
		return SeverityMedium
	case ViolationPaymentMethodAbuse:
		return SeverityCritical
	default:
		return SeverityHigh
	}
}

// Violation records why a payment request was denied.
type Violation struct {
	ID         string         `json:"id"`
	Type       ViolationType  `json:"type"`
	Severity   Severity       `json:"severity"`
	Identity   string         `json:"identity"` // identity key
	IP         string         `json:"ip,omitempty"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	// RetryAfter is the client backoff hint in seconds. Zero for
	// non-retryable violation types.
	RetryAfter int `json:"retry_after,omitempty"`
}

// NewViolation creates a Violation with domain invariant validation.
func NewViolation(vtype ViolationType, identity Identity, message string, context map[string]any, occurredAt time.Time) (*Violation, error) {
	if !vtype.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid violation type")
	}
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity cannot be empty")
	}
	if message == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "message cannot be empty")
	}
	if occurredAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "occurred_at cannot be zero")
	}

	return &Violation{
		ID:         uuid.NewString(),
		Type:       vtype,
		Severity:   vtype.Severity(),
		Identity:   identity.Key(),
		IP:         identity.IP,
		Message:    message,
		Context:    context,
		OccurredAt: occurredAt,
	}, nil
}

// PaymentStatus tracks the lifecycle of a ledger entry.
type PaymentStatus string

const (
	// PaymentInitiated: guard admitted the attempt, outcome not yet known.
	PaymentInitiated PaymentStatus = "initiated"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	return s == PaymentInitiated || s == PaymentSucceeded || s == PaymentFailed
}

// PaymentMethodInfo describes the instrument behind a payment attempt.
// The fingerprint is an opaque stable hash supplied by the payment collaborator.
type PaymentMethodInfo struct {
	Fingerprint string `json:"fingerprint"`
	Kind        string `json:"kind,omitempty"`    // card, bank_account, wallet
	Country     string `json:"country,omitempty"` // issuing country, ISO 3166-1 alpha-2
}

// PaymentAttempt is one entry in an identity's bounded recent-activity ledger.
type PaymentAttempt struct {
	Identity          string        `json:"identity"` // identity key
	AmountCents       int64         `json:"amount_cents"`
	Status            PaymentStatus `json:"status"`
	FailureReason     string        `json:"failure_reason,omitempty"`
	MethodFingerprint string        `json:"method_fingerprint,omitempty"`
	DeviceFingerprint string        `json:"device_fingerprint,omitempty"`
	OriginCountry     string        `json:"origin_country,omitempty"`
	At                time.Time     `json:"at"`
}

// NewPaymentAttempt creates a ledger entry with domain invariant validation.
func NewPaymentAttempt(identity Identity, amountCents int64, status PaymentStatus, at time.Time) (*PaymentAttempt, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity cannot be empty")
	}
	if amountCents < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "amount cannot be negative")
	}
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid payment status")
	}
	if at.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "timestamp cannot be zero")
	}
	return &PaymentAttempt{
		Identity:    identity.Key(),
		AmountCents: amountCents,
		Status:      status,
		At:          at,
	}, nil
}

// TriggerType names a downstream side effect gated by the cooldown tracker.
type TriggerType string

const (
	TriggerFileChange       TriggerType = "file_change"
	TriggerAuthChange       TriggerType = "auth_change"
	TriggerPaymentChange    TriggerType = "payment_change"
	TriggerCriticalSecurity TriggerType = "critical_security"
	TriggerComplianceCheck  TriggerType = "compliance_check"
	TriggerManual           TriggerType = "manual_trigger"
)

func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerFileChange, TriggerAuthChange, TriggerPaymentChange,
		TriggerCriticalSecurity, TriggerComplianceCheck, TriggerManual:
		return true
	}
	return false
}

func (t TriggerType) String() string {
	return string(t)
}

// ParseTriggerType creates a TriggerType from a string, validating it.
func ParseTriggerType(s string) (TriggerType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "trigger type cannot be empty")
	}
	t := TriggerType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown trigger type: "+s)
	}
	return t, nil
}

// CooldownEntry records the last firing of a trigger type.
type CooldownEntry struct {
	Trigger         TriggerType   `json:"trigger"`
	LastTriggeredAt time.Time     `json:"last_triggered_at"`
	Cooldown        time.Duration `json:"cooldown"`
}

// UsageRecord captures one gated request for trend analysis.
type UsageRecord struct {
	Identity string        `json:"identity"` // identity key
	Endpoint string        `json:"endpoint"` // normalized path
	Method   string        `json:"method"`
	Status   int           `json:"status"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// NewUsageRecord creates a UsageRecord, normalizing the endpoint path.
func NewUsageRecord(identity Identity, endpoint, method string, status int, duration time.Duration, at time.Time) (*UsageRecord, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity cannot be empty")
	}
	if endpoint == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "endpoint cannot be empty")
	}
	if method == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "method cannot be empty")
	}
	if at.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "timestamp cannot be zero")
	}
	return &UsageRecord{
		Identity: identity.Key(),
		Endpoint: NormalizeEndpoint(endpoint),
		Method:   method,
		Status:   status,
		Duration: duration,
		At:       at,
	}, nil
}

// AllowlistEntryType distinguishes what kind of identifier is exempted.
type AllowlistEntryType string

const (
	AllowlistTypeIP     AllowlistEntryType = "ip"
	AllowlistTypeUserID AllowlistEntryType = "user_id"
	AllowlistTypeAPIKey AllowlistEntryType = "api_key"
)

// ParseAllowlistEntryType creates an AllowlistEntryType from a string, validating it.
func ParseAllowlistEntryType(s string) (AllowlistEntryType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "allowlist entry type cannot be empty")
	}
	t := AllowlistEntryType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid allowlist entry type: must be 'ip', 'user_id', or 'api_key'")
	}
	return t, nil
}

func (t AllowlistEntryType) IsValid() bool {
	return t == AllowlistTypeIP || t == AllowlistTypeUserID || t == AllowlistTypeAPIKey
}

func (t AllowlistEntryType) String() string {
	return string(t)
}

// AllowlistEntry exempts an identifier from window limiting.
type AllowlistEntry struct {
	ID         string             `json:"id"`
	Type       AllowlistEntryType `json:"type"`
	Identifier string             `json:"identifier"`
	Reason     string             `json:"reason"`
	ExpiresAt  *time.Time         `json:"expires_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	CreatedBy  string             `json:"created_by"` // admin principal
}

// NewAllowlistEntry creates an AllowlistEntry with domain invariant validation.
func NewAllowlistEntry(entryType AllowlistEntryType, identifier, reason, createdBy string, expiresAt *time.Time, createdAt time.Time) (*AllowlistEntry, error) {
	if !entryType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid allowlist entry type")
	}
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identifier cannot be empty")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "reason cannot be empty")
	}
	if createdAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "created_at cannot be zero")
	}

	return &AllowlistEntry{
		ID:         uuid.NewString(),
		Type:       entryType,
		Identifier: identifier,
		Reason:     reason,
		ExpiresAt:  expiresAt,
		CreatedAt:  createdAt,
		CreatedBy:  createdBy,
	}, nil
}

// IsExpired reports whether the entry has lapsed as of now.
func (e *AllowlistEntry) IsExpired(now time.Time) bool {
	if e.ExpiresAt == nil {
		return false
	}
	return now.After(*e.ExpiresAt)
}
