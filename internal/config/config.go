// Package config holds the typed engine configuration: quota tiers, window
// policy, fraud thresholds, cooldown intervals, and the per-class failure
// policy. Everything is loaded once at startup and validated before the
// first request is gated.
package config

import (
	"time"

	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
)

// FailureMode decides what happens when the enforcement stores cannot answer.
type FailureMode string

const (
	// FailOpen allows the request with a generous default limit. Availability
	// over enforcement; appropriate for general API throughput limiting.
	FailOpen FailureMode = "open"
	// FailClosed denies the request with 503 until the stores recover.
	// Appropriate for payment fraud checks where allow-by-default is a hole.
	FailClosed FailureMode = "closed"
)

func (m FailureMode) IsValid() bool {
	return m == FailOpen || m == FailClosed
}

// ParseFailureMode validates a mode string from the environment.
func ParseFailureMode(s string) (FailureMode, error) {
	m := FailureMode(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeConfiguration, "failure mode must be 'open' or 'closed'")
	}
	return m, nil
}

// Config is the engine configuration.
type Config struct {
	// Tiers maps each tier name to its quota profile.
	Tiers map[models.TierName]models.Tier

	// DefaultTier is assigned to unknown identities and billing lookup failures.
	DefaultTier models.TierName

	// TierCacheTTL bounds how stale a cached tier resolution may be.
	TierCacheTTL time.Duration

	// Windows configures the calendar-window limiter.
	Windows WindowConfig

	// Fraud configures the payment violation classifier.
	Fraud FraudConfig

	// Cooldowns maps each trigger type to its minimum interval between firings.
	// A zero duration means the trigger always fires.
	Cooldowns map[models.TriggerType]time.Duration

	// Failure maps each endpoint class to its failure mode.
	Failure map[models.EndpointClass]FailureMode

	// Usage configures the usage recorder retention.
	Usage UsageConfig

	// Prefixes declares which path prefixes are gated, and as which class.
	Prefixes PrefixConfig
}

// WindowConfig holds limiter-level policy shared by all tiers.
type WindowConfig struct {
	// StoreTimeout bounds every counter store round trip.
	StoreTimeout time.Duration

	// FailOpenLimit is the per-hour limit surfaced while the limiter is
	// failing open, so degraded responses still carry a coherent contract.
	FailOpenLimit int
}

// RiskProfile selects the amount ceilings applied to an identity.
type RiskProfile string

const (
	RiskStandard RiskProfile = "standard"
	RiskElevated RiskProfile = "elevated"
)

// AmountCeiling caps payment amounts for a risk profile. Values are cents.
type AmountCeiling struct {
	SingleCents  int64 // largest single transaction
	RollingCents int64 // largest rolling-window spend including the attempt
}

// FraudConfig holds the classifier thresholds.
// All windows are rolling, measured against the identity's activity ledger.
type FraudConfig struct {
	// LedgerTimeout bounds every ledger store round trip.
	LedgerTimeout time.Duration

	// LedgerSize bounds the per-identity recent-activity ledger.
	LedgerSize int

	// LedgerTTL expires an idle identity's ledger entirely.
	LedgerTTL time.Duration

	// FrequencyWindow and FrequencyMax bound payment attempts per identity.
	// Intent checks use FrequencyMax; confirmation checks use the tighter
	// ConfirmationMax.
	FrequencyWindow time.Duration
	FrequencyMax    int
	ConfirmationMax int

	// AmountWindow is the rolling-spend window for amount ceilings.
	AmountWindow time.Duration

	// Ceilings maps each risk profile to its amount caps.
	Ceilings map[RiskProfile]AmountCeiling

	// RiskProfiles maps each tier to the ceiling profile applied to it.
	RiskProfiles map[models.TierName]RiskProfile

	// VelocityMultiplier flags an identity whose recent attempt rate is at
	// least this many times its own older baseline. VelocityMinSamples is the
	// minimum ledger depth before the baseline is trusted.
	VelocityWindow     time.Duration
	VelocityMultiplier float64
	VelocityMinSamples int

	// Pattern heuristics: distinct payment methods or devices within
	// PatternWindow, and consecutive ascending round amounts.
	PatternWindow          time.Duration
	PatternDistinctMethods int
	PatternDistinctDevices int
	PatternRoundAmounts    int

	// MethodAbuseWindow and MethodAbuseMaxIdentities bound how many distinct
	// identities may share one payment method fingerprint.
	MethodAbuseWindow        time.Duration
	MethodAbuseMaxIdentities int
}

// CeilingFor returns the amount ceiling for a tier, falling back to standard.
func (f FraudConfig) CeilingFor(tier models.TierName) AmountCeiling {
	profile, ok := f.RiskProfiles[tier]
	if !ok {
		profile = RiskStandard
	}
	if c, ok := f.Ceilings[profile]; ok {
		return c
	}
	return f.Ceilings[RiskStandard]
}

// UsageConfig holds retention policy for the usage recorder.
type UsageConfig struct {
	// RecentLimit bounds the per-identity recent request list.
	RecentLimit int

	// AggregateTTL retains per-endpoint aggregate counters.
	AggregateTTL time.Duration
}

// PrefixConfig declares the protected path prefixes per endpoint class.
// Payment prefixes are matched before API prefixes so nested payment routes
// classify correctly.
type PrefixConfig struct {
	API     []string
	Payment []string
}

// DefaultConfig returns the shipped policy tables. Values are policy, not
// protocol; deployments override them through the environment at startup.
func DefaultConfig() *Config {
	return &Config{
		Tiers: map[models.TierName]models.Tier{
			models.TierFree:       {Name: models.TierFree, HourlyLimit: 100, DailyLimit: 1000},
			models.TierBasic:      {Name: models.TierBasic, HourlyLimit: 1000, DailyLimit: 10000},
			models.TierPremium:    {Name: models.TierPremium, HourlyLimit: 5000, DailyLimit: 50000},
			models.TierEnterprise: {Name: models.TierEnterprise, HourlyLimit: 20000, DailyLimit: 200000},
		},
		DefaultTier:  models.TierFree,
		TierCacheTTL: 5 * time.Minute,
		Windows: WindowConfig{
			StoreTimeout:  50 * time.Millisecond,
			FailOpenLimit: 1000,
		},
		Fraud: FraudConfig{
			LedgerTimeout:   100 * time.Millisecond,
			LedgerSize:      50,
			LedgerTTL:       24 * time.Hour,
			FrequencyWindow: 5 * time.Minute,
			FrequencyMax:    10,
			ConfirmationMax: 5,
			AmountWindow:    10 * time.Minute,
			Ceilings: map[RiskProfile]AmountCeiling{
				RiskStandard: {SingleCents: 500_000, RollingCents: 1_000_000},    // $5,000 / $10,000
				RiskElevated: {SingleCents: 2_000_000, RollingCents: 5_000_000}, // $20,000 / $50,000
			},
			RiskProfiles: map[models.TierName]RiskProfile{
				models.TierFree:       RiskStandard,
				models.TierBasic:      RiskStandard,
				models.TierPremium:    RiskElevated,
				models.TierEnterprise: RiskElevated,
			},
			VelocityWindow:           2 * time.Minute,
			VelocityMultiplier:       4,
			VelocityMinSamples:       5,
			PatternWindow:            10 * time.Minute,
			PatternDistinctMethods:   3,
			PatternDistinctDevices:   3,
			PatternRoundAmounts:      3,
			MethodAbuseWindow:        24 * time.Hour,
			MethodAbuseMaxIdentities: 3,
		},
		Cooldowns: map[models.TriggerType]time.Duration{
			models.TriggerFileChange:       15 * time.Minute,
			models.TriggerAuthChange:       5 * time.Minute,
			models.TriggerPaymentChange:    10 * time.Minute,
			models.TriggerCriticalSecurity: 30 * time.Minute,
			models.TriggerComplianceCheck:  60 * time.Minute,
			models.TriggerManual:           0,
		},
		Failure: map[models.EndpointClass]FailureMode{
			models.ClassAPI:     FailOpen,
			models.ClassPayment: FailClosed,
		},
		Usage: UsageConfig{
			RecentLimit:  100,
			AggregateTTL: 30 * 24 * time.Hour,
		},
		Prefixes: PrefixConfig{
			API:     []string{"/v1/"},
			Payment: []string{"/v1/payments/"},
		},
	}
}

// Validate rejects configurations that would misgate traffic. Called once at
// startup; a failure here is fatal, never per-request.
func (c *Config) Validate() error {
	if len(c.Tiers) == 0 {
		return dErrors.New(dErrors.CodeConfiguration, "tier table cannot be empty")
	}
	for name, tier := range c.Tiers {
		if !name.IsValid() {
			return dErrors.New(dErrors.CodeConfiguration, "unknown tier name: "+name.String())
		}
		if tier.HourlyLimit <= 0 || tier.DailyLimit <= 0 {
			return dErrors.New(dErrors.CodeConfiguration, "tier limits must be positive: "+name.String())
		}
		if tier.DailyLimit < tier.HourlyLimit {
			return dErrors.New(dErrors.CodeConfiguration, "daily limit below hourly limit: "+name.String())
		}
	}
	if _, ok := c.Tiers[c.DefaultTier]; !ok {
		return dErrors.New(dErrors.CodeConfiguration, "default tier missing from tier table")
	}
	if c.TierCacheTTL <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "tier cache TTL must be positive")
	}
	if c.Windows.StoreTimeout <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "window store timeout must be positive")
	}
	if c.Windows.FailOpenLimit <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "fail-open limit must be positive")
	}
	if err := c.Fraud.validate(); err != nil {
		return err
	}
	for trigger, cooldown := range c.Cooldowns {
		if !trigger.IsValid() {
			return dErrors.New(dErrors.CodeConfiguration, "unknown trigger type: "+trigger.String())
		}
		if cooldown < 0 {
			return dErrors.New(dErrors.CodeConfiguration, "cooldown cannot be negative: "+trigger.String())
		}
	}
	for class, mode := range c.Failure {
		if !class.IsValid() {
			return dErrors.New(dErrors.CodeConfiguration, "unknown endpoint class: "+class.String())
		}
		if !mode.IsValid() {
			return dErrors.New(dErrors.CodeConfiguration, "invalid failure mode for class: "+class.String())
		}
	}
	if _, ok := c.Failure[models.ClassAPI]; !ok {
		return dErrors.New(dErrors.CodeConfiguration, "failure policy missing for api class")
	}
	if _, ok := c.Failure[models.ClassPayment]; !ok {
		return dErrors.New(dErrors.CodeConfiguration, "failure policy missing for payment class")
	}
	if c.Usage.RecentLimit <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "usage recent limit must be positive")
	}
	if c.Usage.AggregateTTL <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "usage aggregate TTL must be positive")
	}
	if len(c.Prefixes.API) == 0 {
		return dErrors.New(dErrors.CodeConfiguration, "at least one protected API prefix is required")
	}
	return nil
}

func (f FraudConfig) validate() error {
	if f.LedgerTimeout <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "ledger timeout must be positive")
	}
	if f.LedgerSize <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "ledger size must be positive")
	}
	if f.FrequencyWindow <= 0 || f.FrequencyMax <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "frequency threshold must be positive")
	}
	if f.ConfirmationMax <= 0 || f.ConfirmationMax > f.FrequencyMax {
		return dErrors.New(dErrors.CodeConfiguration, "confirmation threshold must be positive and at most the intent threshold")
	}
	if f.AmountWindow <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "amount window must be positive")
	}
	if _, ok := f.Ceilings[RiskStandard]; !ok {
		return dErrors.New(dErrors.CodeConfiguration, "standard risk ceiling is required")
	}
	for profile, ceiling := range f.Ceilings {
		if ceiling.SingleCents <= 0 || ceiling.RollingCents <= 0 {
			return dErrors.New(dErrors.CodeConfiguration, "amount ceilings must be positive: "+string(profile))
		}
	}
	if f.VelocityMultiplier <= 1 {
		return dErrors.New(dErrors.CodeConfiguration, "velocity multiplier must exceed 1")
	}
	if f.VelocityMinSamples <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "velocity minimum samples must be positive")
	}
	if f.PatternDistinctMethods <= 1 || f.PatternDistinctDevices <= 1 || f.PatternRoundAmounts <= 1 {
		return dErrors.New(dErrors.CodeConfiguration, "pattern thresholds must exceed 1")
	}
	if f.MethodAbuseMaxIdentities <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "method abuse identity threshold must be positive")
	}
	return nil
}
