// Package text cleans user-provided message text before it is re-posted.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "…"

var multipleNewlines = regexp.MustCompile(`\n{3,}`)

// invisible formatting characters that break embed rendering
var invisibleReplacer = strings.NewReplacer(
	"\u200b", "",
	"\u200e", "",
	"\u200f", "",
	"\u202a", "",
	"\u202b", "",
	"\u202c", "",
	"\u202d", "",
	"\u202e", "",
	"\ufeff", "",
	"\u2028", "\n",
	"\u2029", "\n",
)

// Normalize converts line endings to LF, drops control and directional
// formatting characters, trims trailing spaces on each line, and collapses
// runs of blank lines to one.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = invisibleReplacer.Replace(s)

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = multipleNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// Truncate shortens s to at most max runes, ending with an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return ellipsis
	}

	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:max-1]), unicode.IsSpace) + ellipsis
}
