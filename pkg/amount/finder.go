package amount

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// amountRE matches an amount with an optional leading or trailing currency
// symbol. Group 1 is the number: either grouped ("1,234.56", "1'234",
// "1 234,56") or plain with up to two decimals ("12", "9.99"). A space only
// groups when exactly three digits follow it, so "2 12.00" stays two tokens.
var amountRE = regexp.MustCompile(`(?:[$€£¥₹₽]\s?)?(\d{1,3}(?:[,.'’ \x{00a0}]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)(?:\s?[$€£¥₹₽])?`)

// FindAmountsInText returns every plausible amount in text in line order,
// then match order within the line. Context is the matched line with its
// whitespace collapsed.
func FindAmountsInText(text string) []ExtractedAmount {
	text = norm.NFKC.String(text)
	hint := DetectNumberFormat(text)
	out := make([]ExtractedAmount, 0)
	for i, line := range splitLines(text) {
		matches := amountRE.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}
		context := normalizeSpace(line)
		for _, m := range matches {
			v, ok := ParseCurrencyString(m[1], hint)
			if !ok || !isPlausibleAmount(v) {
				continue
			}
			out = append(out, ExtractedAmount{Value: v, Context: context, LineIndex: i})
		}
	}
	return out
}
