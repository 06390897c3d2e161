package domain

import (
	"strings"
	"unicode"
)

// NormalizeQuery prepares free-text search input:
//   - trims leading/trailing whitespace
//   - compresses every run of whitespace (spaces, tabs, newlines) into one space
//
// Case is preserved; matching is case-insensitive in storage.
func NormalizeQuery(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
