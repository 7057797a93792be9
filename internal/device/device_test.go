package device_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/device"
)

const chromeMacUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
const safariIOSUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (Version/17.0 Mobile/15E148 Safari/604.1"

type FingerprinterSuite struct {
	suite.Suite
	fp *device.Fingerprinter
}

func TestFingerprinterSuite(t *testing.T) {
	suite.Run(t, new(FingerprinterSuite))
}

func (s *FingerprinterSuite) SetupTest() {
	s.fp = device.NewFingerprinter(true)
}

// ============================================================
// Fingerprint computation
// ============================================================

// TestComputeIsStable verifies the same User-Agent always yields the same
// fingerprint.
// Justification: device counting in the pattern signal depends on fingerprint
// stability within a session.
func (s *FingerprinterSuite) TestComputeIsStable() {
	a := s.fp.Compute(chromeMacUA)
	b := s.fp.Compute(chromeMacUA)
	s.NotEmpty(a)
	s.Equal(a, b)
}

// TestComputeDistinguishesDevices verifies different browser/OS combinations
// produce different fingerprints.
func (s *FingerprinterSuite) TestComputeDistinguishesDevices() {
	a := s.fp.Compute(chromeMacUA)
	b := s.fp.Compute(safariIOSUA)
	s.NotEqual(a, b)
}

// TestComputeIgnoresPatchVersion verifies only the major browser version
// participates in the fingerprint, so routine browser updates within a major
// release do not register as new devices.
func (s *FingerprinterSuite) TestComputeIgnoresPatchVersion() {
	a := s.fp.Compute("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.1.5 Safari/537.36")
	b := s.fp.Compute("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.9.9 Safari/537.36")
	s.Equal(a, b)
}

// TestComputeDisabledReturnsEmpty verifies a disabled fingerprinter reports
// no device data rather than a degenerate constant hash.
func (s *FingerprinterSuite) TestComputeDisabledReturnsEmpty() {
	disabled := device.NewFingerprinter(false)
	s.Empty(disabled.Compute(chromeMacUA))
}

// TestComputeEmptyUserAgent verifies an absent User-Agent yields no fingerprint.
func (s *FingerprinterSuite) TestComputeEmptyUserAgent() {
	s.Empty(s.fp.Compute(""))
}

// ============================================================
// Comparison
// ============================================================

// TestCompareDetectsDrift verifies mismatched fingerprints report drift.
func (s *FingerprinterSuite) TestCompareDetectsDrift() {
	a := s.fp.Compute(chromeMacUA)
	b := s.fp.Compute(safariIOSUA)

	matched, drift := s.fp.Compare(a, b)
	s.False(matched)
	s.True(drift)

	matched, drift = s.fp.Compare(a, a)
	s.True(matched)
	s.False(drift)
}

// ============================================================
// Description
// ============================================================

// TestDescribe verifies human-readable device names for audit context.
func (s *FingerprinterSuite) TestDescribe() {
	s.Contains(device.Describe(chromeMacUA), "Chrome")
	s.Equal("Unknown Device", device.Describe(""))
}
