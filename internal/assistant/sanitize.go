package assistant

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxPreviewLength caps prompt/response previews in debug logs.
const maxPreviewLength = 200

// previewForLog strips control characters, fixes invalid UTF-8 and truncates
// so prompts can be logged without log injection or oversized entries.
func previewForLog(s string) string {
	if s == "" {
		return ""
	}

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()

	if len(s) > maxPreviewLength {
		cut := maxPreviewLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
