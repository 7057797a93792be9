// Package observability provides audit logging helpers shared by the gating services.
package observability

import (
	"context"
	"log/slog"

	"turnstile/internal/audit"
	platformMW "turnstile/internal/platform/middleware"
)

// AuditPublisher emits audit events for security-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an audit event to both the structured logger and the audit
// publisher when available. Attribute pairs follow slog conventions.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event string, attrList ...any) {
	requestID := platformMW.GetRequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", event, "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}

	if publisher == nil {
		return
	}

	subject := extractString(attrList, "identity")
	if subject == "" {
		subject = extractString(attrList, "identifier")
	}
	reason := extractString(attrList, "reason")
	if reason == "" {
		reason = extractString(attrList, "violation_type")
	}

	if err := publisher.Emit(ctx, audit.Event{
		Action:    event,
		Subject:   subject,
		IP:        extractString(attrList, "ip"),
		RequestID: requestID,
		Reason:    reason,
		Decision:  "denied", // gate audit events are denials unless stated otherwise
	}); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}

// extractString finds the string value following a key in a slog-style
// alternating key/value list.
func extractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(string); ok {
			return v
		}
	}
	return ""
}
