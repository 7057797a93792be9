// Package violations persists fraud classification outcomes for review.
package violations

import (
	"context"

	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
)

// ErrNotFound is returned when a violation does not exist.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "violation not found")

// Store is the violation persistence contract.
type Store interface {
	// Insert persists one violation.
	Insert(ctx context.Context, v *models.Violation) error

	// GetByID retrieves a single violation.
	GetByID(ctx context.Context, id string) (*models.Violation, error)

	// ListByIdentity returns violations for an identity key, newest first,
	// paged by limit and offset.
	ListByIdentity(ctx context.Context, identityKey string, limit, offset int) ([]*models.Violation, error)

	// ListRecent returns the newest violations across all identities.
	ListRecent(ctx context.Context, limit, offset int) ([]*models.Violation, error)
}
