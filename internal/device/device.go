// Package device derives stable device fingerprints from User-Agent strings.
// Fingerprints feed the pattern-abuse signal: an identity cycling through many
// distinct devices inside a short window is a probe indicator.
package device

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Fingerprinter computes device fingerprints from request metadata.
type Fingerprinter struct {
	enabled bool
}

// NewFingerprinter creates a fingerprinter. Disabled instances return empty
// fingerprints, which the fraud signals treat as "no device data".
func NewFingerprinter(enabled bool) *Fingerprinter {
	return &Fingerprinter{enabled: enabled}
}

// Compute derives a stable fingerprint from a User-Agent string.
// Note: Does NOT include IP address (too volatile; IP is a separate signal).
func (f *Fingerprinter) Compute(userAgentString string) string {
	if !f.enabled || userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if version != "" {
		parts := strings.Split(version, ".")
		if len(parts) > 0 && parts[0] != "" {
			majorVersion = parts[0]
		}
	}

	os := ua.OS()
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	os = strings.ToLower(strings.TrimSpace(os))
	if os == "" {
		os = "unknown"
	}

	data := fmt.Sprintf("%s|%s|%s|%s", browser, majorVersion, os, platform)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Compare compares stored and current device fingerprints using constant-time
// comparison. Returns (matched, driftDetected).
func (f *Fingerprinter) Compare(stored, current string) (matched bool, driftDetected bool) {
	if !f.enabled {
		return true, false
	}
	matched = subtle.ConstantTimeCompare([]byte(stored), []byte(current)) == 1
	driftDetected = !matched
	return matched, driftDetected
}

// Describe extracts a human-readable device name from a User-Agent string,
// e.g. "Chrome on macOS". Used in audit context, never for keying.
func Describe(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)

	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		platform := ua.Platform()
		if platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + os)
}
