package amount

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const minReadableText = 10

const (
	msgUnreadable = "Couldn't read the receipt. Try a sharper, well-lit photo or enter the total manually."
	msgNoAmounts  = "Found text on the receipt but no amounts. Enter the total manually."
)

// NoAmountErrorMessage explains why no amount was selected. It returns
// ok=false when d already carries an amount.
func NoAmountErrorMessage(d ExtractedData) (string, bool) {
	if d.Amount > 0 {
		return "", false
	}
	switch n := len(d.AllAmounts); {
	case utf8.RuneCountInString(strings.TrimSpace(d.RawText)) < minReadableText:
		return msgUnreadable, true
	case n == 0:
		return msgNoAmounts, true
	case n == 1:
		return fmt.Sprintf("Found one amount (%s) but couldn't confirm it is the total. Use it or enter the total manually.",
			FormatValue(d.AllAmounts[0].Value)), true
	default:
		return fmt.Sprintf("Found %d amounts but couldn't tell which one is the total. Pick one or enter the total manually.", n), true
	}
}

// FormatValue renders an amount with two decimals.
func FormatValue(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
