// Package logging keeps SQL text safe to put in a log line.
package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for masked literals
	RedactedText = "[REDACTED]"
)

// Matches single-quoted SQL string literals, including escaped quotes
// (''). Compiled filter values and customer identifiers travel inside
// these, so they never reach a log line verbatim.
var stringLiteralPattern = regexp.MustCompile(`'(?:[^']|'')*'`)

// SanitizeQuery masks string literals and truncates a SQL query for logging.
// Use this before logging any query handed to the database engine.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := stringLiteralPattern.ReplaceAllString(query, "'"+RedactedText+"'")

	return truncateRunes(sanitized, MaxQueryLogLength)
}

// truncateRunes cuts on rune boundaries; generated queries can contain
// CJK column names.
func truncateRunes(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
