package models

import (
	"fmt"
	"strings"
	"time"
)

// KeyPrefix represents the subject kind inside a storage key.
type KeyPrefix string

const (
	KeyPrefixAPIKey KeyPrefix = "key"
	KeyPrefixUser   KeyPrefix = "user"
	KeyPrefixIP     KeyPrefix = "ip"
)

// RateLimitKey is a value object encapsulating window counter key construction.
// It centralizes key format and sanitization so user-controlled identifiers
// cannot collide with adjacent buckets.
type RateLimitKey struct {
	prefix     KeyPrefix
	identifier string
	window     WindowType
	bucket     string
}

// NewWindowKey derives the counter key for an identity in the bucket containing now.
// The bucket suffix is the calendar floor of now (hour or day, UTC), so every
// process computing a key for the same identity and instant lands on the same
// counter.
func NewWindowKey(identity Identity, window WindowType, now time.Time) RateLimitKey {
	prefix, value := identity.Subject()
	return RateLimitKey{
		prefix:     prefix,
		identifier: sanitizeKeySegment(value),
		window:     window,
		bucket:     window.BucketSuffix(now),
	}
}

// String returns the formatted key for storage lookup.
// Format: rl:{prefix}:{identifier}:{window}:{bucket}
func (k RateLimitKey) String() string {
	return fmt.Sprintf("rl:%s:%s:%s:%s", k.prefix, k.identifier, k.window, k.bucket)
}

// NewIdentityKey builds the stable identity key used by the ledger, usage,
// and tier cache. No bucket component; the identity key is time-invariant.
func NewIdentityKey(prefix KeyPrefix, identifier string) string {
	return fmt.Sprintf("%s:%s", prefix, sanitizeKeySegment(identifier))
}

// NewCooldownKey builds the storage key for a trigger type's last firing.
func NewCooldownKey(trigger TriggerType) string {
	return fmt.Sprintf("cooldown:%s", trigger)
}

// sanitizeKeySegment escapes delimiter characters in key segments to prevent
// key collision attacks where user-controlled identifiers containing ':'
// could manipulate adjacent rate limit buckets.
//
// Escape rules (order matters):
//  1. Escape '_' to '__' (escape the escape character first)
//  2. Escape ':' to '_c' (escape the delimiter)
//
// Examples:
//   - "user:admin"  → "user_cadmin"  (colon escaped)
//   - "user_admin"  → "user__admin"  (underscore escaped)
//   - "user_:admin" → "user___cadmin" (both escaped, no collision)
//
// This ensures no two distinct inputs produce the same sanitized output.
func sanitizeKeySegment(s string) string {
	// Order matters: escape the escape character first
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
