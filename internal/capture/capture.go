// Package capture obtains the text that autotyper types, either by polling
// the system clipboard or by reading a batch of lines from a console prompt.
package capture

import (
	"strings"
	"unicode/utf8"
)

// Payload is one captured piece of text. It is never modified after capture;
// a newer capture replaces it wholesale.
type Payload struct {
	Text string
}

// NewPayload wraps captured text.
func NewPayload(text string) Payload {
	return Payload{Text: text}
}

// Len returns the number of characters (runes) in the payload.
func (p Payload) Len() int {
	return utf8.RuneCountInString(p.Text)
}

// Empty reports whether the payload has nothing but whitespace.
func (p Payload) Empty() bool {
	return strings.TrimSpace(p.Text) == ""
}

const tracebackMarker = "Traceback (most recent call last)"

// LooksLikeStackTrace reports whether s resembles a Python traceback:
// either it carries the traceback header, or it has both a "File" frame
// line and a Traceback line.
func LooksLikeStackTrace(s string) bool {
	s = strings.TrimLeft(s, " \t\r\n")
	if strings.HasPrefix(s, tracebackMarker) || strings.Contains(s, tracebackMarker) {
		return true
	}
	return strings.Contains(s, "\n  File ") && strings.Contains(s, "\nTraceback")
}

// Preview returns at most n characters of text, followed by "..." if
// anything was cut off.
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
