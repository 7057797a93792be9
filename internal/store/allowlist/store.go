// Package allowlist persists identifiers exempted from window limiting.
package allowlist

import (
	"context"

	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
)

// ErrNotFound is returned when an allowlist entry does not exist.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "allowlist entry not found")

// Store is the allowlist persistence contract.
type Store interface {
	// Add inserts or updates the entry for (type, identifier).
	Add(ctx context.Context, entry *models.AllowlistEntry) error

	// Remove deletes the entry for (type, identifier).
	Remove(ctx context.Context, entryType models.AllowlistEntryType, identifier string) error

	// Match returns the live entry covering any of the identity's
	// identifiers, or nil when none matches. Expired entries never match.
	Match(ctx context.Context, identity models.Identity) (*models.AllowlistEntry, error)

	// List returns all unexpired entries.
	List(ctx context.Context) ([]*models.AllowlistEntry, error)
}
