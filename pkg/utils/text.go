// Package utils provides shared utilities for text, math, and logging.
package utils

// Ellipsis marks truncated text.
const Ellipsis = "..."

// Truncate returns s cut to maxLen characters (runes), with "..." appended if
// truncated. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	count := 0
	for i := range s {
		if count == maxLen {
			return s[:i] + Ellipsis
		}
		count++
	}
	return s
}
