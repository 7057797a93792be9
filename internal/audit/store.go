package audit

import (
	"context"

	dErrors "turnstile/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")
)

// Store is the audit sink contract. Implementations must tolerate concurrent
// Append calls; the publisher serializes nothing.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
