package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain text unchanged", "Steep turns and stalls", "Steep turns and stalls"},
		{"trims", "  pattern work \n", "pattern work"},
		{"keeps less-than", "if x<y then go around", "if x<y then go around"},
		{"keeps tag-like text", "kept airspeed a<b during <flare> practice", "kept airspeed a<b during <flare> practice"},
		{"keeps ampersand", "Q&A debrief", "Q&A debrief"},
		{"keeps inner line breaks", "line one\nline two", "line one\nline two"},
		{"drops control characters", "go\x00 around\x07", "go around"},
		{"composes accents", "café", "café"},
		{"replaces invalid utf-8", "bad\xffbyte", "bad�byte"},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}
