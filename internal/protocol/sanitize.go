package protocol

import (
	"html"
	"strings"
)

const maxChatLength = 2000

// SanitizeChat makes untrusted chat text inert before any rendering surface
// sees it: markup is escaped, control characters are dropped, and the result
// is length-capped. Newlines and tabs survive.
func SanitizeChat(text string) string {
	if len(text) > maxChatLength {
		text = text[:maxChatLength]
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	return html.EscapeString(b.String())
}
