package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the result at maxLen
// bytes. Callers pass user-supplied search terms through here before they
// reach a query. A maxLen of zero means unbounded.
func SanitizeString(input string, maxLen int) string {
	out := strings.TrimSpace(input)
	if maxLen <= 0 || len(out) <= maxLen {
		return out
	}
	return out[:maxLen]
}
