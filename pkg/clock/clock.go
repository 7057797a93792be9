// Package clock abstracts time so bucket boundaries, cooldown windows, and
// cache expiry can be tested with a controllable virtual clock.
package clock

import "time"

// Clock is the time source used by services and memory stores.
// All time-dependent code takes a Clock instead of calling time.Now directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
}

// System delegates to the standard time package.
type System struct{}

// NewSystem creates a wall-clock implementation.
func NewSystem() *System {
	return &System{}
}

func (c *System) Now() time.Time {
	return time.Now()
}

func (c *System) Since(t time.Time) time.Duration {
	return time.Since(t)
}

var _ Clock = (*System)(nil)
