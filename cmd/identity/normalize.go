package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
// Only trim + lower-case; the registered casing is kept separately for display.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
