// Package tracer provides a lightweight tracing abstraction for the fraud
// classifier.
//
// The classifier evaluates several signals per payment attempt; traces show
// which signal fired and how long each evaluation took without coupling the
// service code to OpenTelemetry APIs.
//
// Implementations:
//   - NoopTracer: For tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes. The
	// returned context carries the span and should flow to child operations.
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Float64 creates a float64 attribute.
func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the fraud classifier.
const (
	SpanClassify    = "fraud.classify"
	SpanSnapshot    = "fraud.snapshot"
	SpanFrequency   = "fraud.signal.frequency"
	SpanAmount      = "fraud.signal.amount"
	SpanVelocity    = "fraud.signal.velocity"
	SpanPattern     = "fraud.signal.pattern"
	SpanGeographic  = "fraud.signal.geographic"
	SpanMethodAbuse = "fraud.signal.method_abuse"
)

// Attribute keys used by the fraud classifier.
const (
	AttrIdentity    = "identity"
	AttrTier        = "tier"
	AttrAmountCents = "amount_cents"
	AttrViolation   = "violation"
	AttrLedgerSize  = "ledger_size"
	AttrFired       = "fired"
)
