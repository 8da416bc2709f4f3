package core

import (
	"strings"
	"unicode/utf8"
)

// quoteReplacer canonicalizes curly quote characters to their straight forms
var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// NormalizeText lower-cases the text, canonicalizes quote characters and
// collapses runs of whitespace to single spaces
func NormalizeText(text string) string {
	lowered := strings.ToLower(quoteReplacer.Replace(text))
	return strings.Join(strings.Fields(lowered), " ")
}

// DedupKey computes the normalized (contact, text) key used to prevent
// duplicate persisted flagged messages
func DedupKey(contact, text string) string {
	return strings.ToLower(strings.TrimSpace(contact)) + ":" + NormalizeText(text)
}

// TruncateText safely truncates text to the specified maximum byte size
// and ensures the result is valid UTF-8
func TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	return truncated
}
