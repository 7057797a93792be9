// Package ledger persists each identity's bounded recent-payment history and
// the method-fingerprint index behind the shared-instrument signal. Entries
// age out after the retention TTL; the ledger is evidence for classification,
// not an accounting record.
package ledger

import (
	"context"
	"time"

	"turnstile/internal/models"
)

// Store is the payment ledger persistence contract.
type Store interface {
	// Append records an attempt at the head of the identity's ledger,
	// truncating to maxEntries and refreshing the retention TTL.
	Append(ctx context.Context, identityKey string, attempt *models.PaymentAttempt, maxEntries int, ttl time.Duration) error

	// Recent returns up to limit attempts for the identity, newest first.
	Recent(ctx context.Context, identityKey string, limit int) ([]*models.PaymentAttempt, error)

	// BindMethod associates a payment method fingerprint with an identity and
	// returns the number of distinct identities seen on that instrument inside
	// the retention window.
	BindMethod(ctx context.Context, methodFingerprint, identityKey string, ttl time.Duration) (int64, error)
}
