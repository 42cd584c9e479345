package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize normalizes line endings, replaces invalid UTF-8 and strips control
// characters other than newline and tab. This prevents log poisoning and
// terminal corruption when generated text is rendered.
func Sanitize(raw string) string {
	s := raw
	if strings.Contains(s, "\r") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t'
}
