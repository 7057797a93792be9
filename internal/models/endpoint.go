package models

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeEndpoint collapses a request path into its route shape so usage
// aggregation groups by endpoint rather than by individual resource.
// Numeric and UUID path segments are stripped entirely:
//
//	/v1/appointments/123          → /v1/appointments
//	/v1/users/1a2b.../bookings/7  → /v1/users/bookings
//
// Query strings and trailing slashes are dropped. The root path is preserved.
func NormalizeEndpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == "/" {
		return "/"
	}

	segments := strings.Split(path, "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || isNumericSegment(seg) || isUUIDSegment(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/")
}

func isNumericSegment(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isUUIDSegment(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
