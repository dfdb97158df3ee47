package logger

import (
	"fmt"
	"strings"
)

// SanitizeForLog escapes control characters so user supplied text (file
// names, tool output, model responses) cannot forge log lines or drive the
// terminal. Printable Unicode is kept as is.
func SanitizeForLog(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 32 || r == 127:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tail sanitizes s and keeps at most the last n runes, which is where tools
// usually print the reason they failed.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if n > 0 && len(runes) > n {
		s = "..." + string(runes[len(runes)-n:])
	}
	return SanitizeForLog(s)
}
