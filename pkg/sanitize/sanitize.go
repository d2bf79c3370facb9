// Package sanitize normalizes user supplied free text before it is
// persisted. The text is kept as typed; clients render it as text, never as
// markup.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text returns s trimmed and composed to NFC, with invalid UTF-8 replaced
// and control characters other than tab and line breaks removed.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "�")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(norm.NFC.String(s))
}
