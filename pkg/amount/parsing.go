package amount

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var plainNumberRE = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ParseCurrencyString converts a raw numeric substring into a value. It
// returns ok=false when nothing numeric is left after cleanup.
//
// When both ',' and '.' appear, the one occurring last is the decimal point.
// With a single separator kind the last occurrence is decimal only if 1-2
// digits follow it; anything else is digit grouping. A lone separator with a
// 3-digit tail ("1.234", "1,234") is grouping under every hint.
func ParseCurrencyString(raw string, hint NumberFormat) (float64, bool) {
	s := cleanNumeric(raw)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		s = withDecimalAt(s, max(lastDot, lastComma))
	case lastDot >= 0 || lastComma >= 0:
		last := max(lastDot, lastComma)
		tail := len(s) - last - 1
		if tail >= 1 && tail <= 2 {
			s = withDecimalAt(s, last)
		} else {
			s = stripSeparators(s)
		}
	}

	if neg {
		s = "-" + s
	}
	if !plainNumberRE.MatchString(s) {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// cleanNumeric keeps digits, separators and a single leading minus.
// Whitespace and apostrophes only ever group digits, so they are dropped.
func cleanNumeric(raw string) string {
	raw = norm.NFKC.String(raw)
	var b strings.Builder
	b.Grow(len(raw))
	seenDigit := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.' || r == ',':
			b.WriteRune(r)
		case r == '-':
			if !seenDigit && b.Len() == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// withDecimalAt drops every separator except the one at idx, which becomes '.'.
func withDecimalAt(s string, idx int) string {
	return stripSeparators(s[:idx]) + "." + stripSeparators(s[idx+1:])
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}
