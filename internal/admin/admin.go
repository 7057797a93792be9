// Package admin exposes the operator surface: allowlist management, counter
// resets, tier cache eviction, cooldown control, and violation review. Every
// mutation emits an audit event naming the admin principal.
package admin

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"turnstile/internal/audit"
	"turnstile/internal/models"
	"turnstile/internal/observability"
	dErrors "turnstile/pkg/domain-errors"
)

// AllowlistStore persists window-limit exemptions.
type AllowlistStore interface {
	Add(ctx context.Context, entry *models.AllowlistEntry) error
	Remove(ctx context.Context, entryType models.AllowlistEntryType, identifier string) error
	List(ctx context.Context) ([]*models.AllowlistEntry, error)
}

// WindowResetter clears window counters for an identity.
type WindowResetter interface {
	Reset(ctx context.Context, identity models.Identity, window models.WindowType) error
}

// TierCache drops cached tier resolutions.
type TierCache interface {
	Evict(identityKey string)
}

// CooldownTracker controls trigger cooldown records.
type CooldownTracker interface {
	RecordTrigger(ctx context.Context, trigger models.TriggerType) error
	Clear(ctx context.Context, trigger models.TriggerType) error
}

// ViolationsStore reads persisted violations for review.
type ViolationsStore interface {
	ListByIdentity(ctx context.Context, identityKey string, limit, offset int) ([]*models.Violation, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.Violation, error)
}

// AuditPublisher emits audit events for admin mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the admin operations service.
type Service struct {
	allowlist  AllowlistStore
	windows    WindowResetter
	tiers      TierCache
	cooldowns  CooldownTracker
	violations ViolationsStore
	logger     *slog.Logger
	audit      AuditPublisher
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditPublisher sets the audit event publisher.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

// WithTierCache enables tier cache eviction.
func WithTierCache(t TierCache) Option {
	return func(s *Service) {
		s.tiers = t
	}
}

// WithCooldowns enables cooldown control.
func WithCooldowns(c CooldownTracker) Option {
	return func(s *Service) {
		s.cooldowns = c
	}
}

// WithViolations enables violation review.
func WithViolations(v ViolationsStore) Option {
	return func(s *Service) {
		s.violations = v
	}
}

// New creates the admin service.
func New(allowlist AllowlistStore, windows WindowResetter, opts ...Option) (*Service, error) {
	if allowlist == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "allowlist store is required")
	}
	if windows == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "window resetter is required")
	}

	svc := &Service{
		allowlist: allowlist,
		windows:   windows,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AllowlistAddRequest is the input for AddToAllowlist.
type AllowlistAddRequest struct {
	Type       models.AllowlistEntryType `json:"type"`
	Identifier string                    `json:"identifier"`
	Reason     string                    `json:"reason"`
	ExpiresAt  *time.Time                `json:"expires_at,omitempty"`
}

// Normalize trims the identifier.
func (r *AllowlistAddRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
	r.Reason = strings.TrimSpace(r.Reason)
}

// Validate rejects malformed entries before they reach the store.
func (r *AllowlistAddRequest) Validate() error {
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid allowlist entry type")
	}
	if r.Identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	if r.Type == models.AllowlistTypeIP && net.ParseIP(r.Identifier) == nil {
		return dErrors.New(dErrors.CodeValidation, "identifier is not a valid IP address")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// AddToAllowlist exempts an identifier from window limiting.
func (s *Service) AddToAllowlist(ctx context.Context, req *AllowlistAddRequest, adminPrincipal string) (*models.AllowlistEntry, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entry, err := models.NewAllowlistEntry(req.Type, req.Identifier, req.Reason, adminPrincipal, req.ExpiresAt, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.allowlist.Add(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "add allowlist entry")
	}

	observability.LogAudit(ctx, s.logger, s.audit, audit.ActionAllowlistAdded,
		"identifier", entry.Identifier,
		"entry_type", entry.Type.String(),
		"admin", adminPrincipal,
	)
	return entry, nil
}

// RemoveFromAllowlist deletes an exemption.
func (s *Service) RemoveFromAllowlist(ctx context.Context, entryType models.AllowlistEntryType, identifier string) error {
	if !entryType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid allowlist entry type")
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}

	if err := s.allowlist.Remove(ctx, entryType, identifier); err != nil {
		return err
	}

	observability.LogAudit(ctx, s.logger, s.audit, audit.ActionAllowlistRemoved,
		"identifier", identifier,
		"entry_type", entryType.String(),
	)
	return nil
}

// ListAllowlist returns the live exemptions.
func (s *Service) ListAllowlist(ctx context.Context) ([]*models.AllowlistEntry, error) {
	return s.allowlist.List(ctx)
}

// ResetRequest is the input for ResetWindows.
type ResetRequest struct {
	Type       models.AllowlistEntryType `json:"type"`
	Identifier string                    `json:"identifier"`
}

// Validate rejects malformed reset requests.
func (r *ResetRequest) Validate() error {
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid identifier type")
	}
	if strings.TrimSpace(r.Identifier) == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	return nil
}

// ResetWindows clears both window counters for an identifier, and evicts its
// cached tier so a concurrent plan change lands immediately.
func (s *Service) ResetWindows(ctx context.Context, req *ResetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	identity, err := identityFor(req.Type, strings.TrimSpace(req.Identifier))
	if err != nil {
		return err
	}

	for _, window := range []models.WindowType{models.WindowHourly, models.WindowDaily} {
		if err := s.windows.Reset(ctx, identity, window); err != nil {
			return err
		}
	}
	if s.tiers != nil {
		s.tiers.Evict(identity.Key())
	}

	observability.LogAudit(ctx, s.logger, s.audit, audit.ActionCounterReset,
		"identifier", req.Identifier,
		"entry_type", req.Type.String(),
	)
	return nil
}

// FireTrigger records a manual trigger firing, starting its cooldown.
func (s *Service) FireTrigger(ctx context.Context, trigger models.TriggerType) error {
	if s.cooldowns == nil {
		return dErrors.New(dErrors.CodeConfiguration, "cooldown tracker not configured")
	}
	if err := s.cooldowns.RecordTrigger(ctx, trigger); err != nil {
		return err
	}
	observability.LogAudit(ctx, s.logger, s.audit, audit.ActionTriggerFired,
		"trigger", trigger.String(),
	)
	return nil
}

// ClearCooldown removes a trigger's cooldown record.
func (s *Service) ClearCooldown(ctx context.Context, trigger models.TriggerType) error {
	if s.cooldowns == nil {
		return dErrors.New(dErrors.CodeConfiguration, "cooldown tracker not configured")
	}
	if err := s.cooldowns.Clear(ctx, trigger); err != nil {
		return err
	}
	observability.LogAudit(ctx, s.logger, s.audit, audit.ActionTriggerCleared,
		"trigger", trigger.String(),
	)
	return nil
}

// ListViolations returns violations, scoped to an identity key when given.
func (s *Service) ListViolations(ctx context.Context, identityKey string, limit, offset int) ([]*models.Violation, error) {
	if s.violations == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "violations store not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	if identityKey != "" {
		return s.violations.ListByIdentity(ctx, identityKey, limit, offset)
	}
	return s.violations.ListRecent(ctx, limit, offset)
}

// identityFor builds the identity a reset targets.
func identityFor(entryType models.AllowlistEntryType, identifier string) (models.Identity, error) {
	switch entryType {
	case models.AllowlistTypeAPIKey:
		return models.Identity{APIKeyID: identifier}, nil
	case models.AllowlistTypeUserID:
		return models.Identity{UserID: identifier}, nil
	case models.AllowlistTypeIP:
		return models.Identity{IP: identifier}, nil
	default:
		return models.Identity{}, dErrors.New(dErrors.CodeValidation, "unknown identifier type")
	}
}
