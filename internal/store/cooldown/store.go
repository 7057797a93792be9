// Package cooldown persists the last-firing timestamp per trigger type for
// the cooldown tracker.
package cooldown

import (
	"context"
	"time"
)

// Store is the trigger timestamp persistence contract. Keys are formatted by
// models.NewCooldownKey.
type Store interface {
	// LastTriggered returns when the trigger last fired. ok is false when the
	// trigger has never fired or its record has expired.
	LastTriggered(ctx context.Context, key string) (at time.Time, ok bool, err error)

	// SetTriggered records a firing. The TTL bounds how long the record is
	// retained; anything past the longest cooldown is dead weight.
	SetTriggered(ctx context.Context, key string, at time.Time, ttl time.Duration) error

	// Clear removes the record so the next firing proceeds immediately.
	Clear(ctx context.Context, key string) error
}
