// Package strings holds small text helpers for terminal output.
package strings

import (
	"strings"
)

// TokenPreviewLen is how much of a bearer token is shown in status output.
const TokenPreviewLen = 16

// MinElideLen is the smallest maxLen Elide honours: one character plus "...".
const MinElideLen = 4

// Elide collapses s onto a single line and shortens it to maxLen runes,
// ending in "..." when anything was cut. Server-supplied text such as
// error_description may contain newlines and runs of blanks.
func Elide(s string, maxLen int) string {
	if maxLen < MinElideLen {
		maxLen = MinElideLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// TokenPreview returns the leading part of a token, suitable for display
// without revealing a usable credential.
func TokenPreview(token string) string {
	if token == "" {
		return ""
	}
	runes := []rune(token)
	if len(runes) <= TokenPreviewLen/2 {
		return strings.Repeat("*", len(runes))
	}
	return Elide(token, TokenPreviewLen)
}
