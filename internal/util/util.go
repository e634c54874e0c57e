// Package util provides small string helpers for Berth operations.
package util

import "strings"

// Truncate shortens a string to at most limit characters, counting runes so
// multi-byte diagnostics are not cut mid-character.
//
// Parameters:
//   - s: Source string.
//   - limit: Maximum number of characters to keep.
//
// Returns:
//   - string: The original string, or its first limit characters.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

// FirstLine returns the first line of a string with surrounding whitespace
// trimmed. An empty or all-whitespace input yields an empty string.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return strings.TrimSpace(line)
}
