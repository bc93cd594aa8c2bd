package probe

import (
	"strings"
	"unicode/utf8"
)

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Preview normalizes element text for display: newlines become spaces,
// surrounding whitespace is trimmed and the result is cut to at most limit
// characters. A negative limit is treated as zero.
func Preview(text string, limit int) string {
	text = strings.TrimSpace(newlines.Replace(text))
	return truncate(text, limit)
}

// truncate cuts s to limit runes without splitting a multi-byte character.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
