package ocr

import (
	"strings"
	"unicode/utf8"
)

// snippet returns a shortened version of text for logging. max counts runes.
func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}

// normalizeOCRText trims every line and drops blank ones. Line structure is
// kept because candidates are scored per line.
func normalizeOCRText(t string) string {
	t = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\t", " ").Replace(t)
	lines := strings.Split(t, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
