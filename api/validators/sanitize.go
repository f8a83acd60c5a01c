package validators

import "strings"

// SanitizeString trims input, drops invalid UTF-8 and keeps at most maxLen
// characters. Truncation never splits a multi-byte character.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(strings.ToValidUTF8(input, ""))
	if maxLen <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}
