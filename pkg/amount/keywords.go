package amount

import "regexp"

// Keyword patterns run against the upper-cased context of a candidate.
var (
	paymentRE        = regexp.MustCompile(`\b(?:CASH|CHANGE|TENDERED|PAID|APPROVAL|AUTH|CARD|VISA|MASTERCARD|AMEX)\b`)
	strongTotalRE    = regexp.MustCompile(`\b(?:GRAND\s+TOTAL|TOTAL\s+DUE|AMOUNT\s+DUE|BALANCE\s+DUE|PLEASE\s+PAY|FINAL\s+AMOUNT|TO\s+PAY)\b`)
	totalWordRE      = regexp.MustCompile(`\bTOTAL\b`)
	totalQualifierRE = regexp.MustCompile(`\b(?:SUB|ITEMS?|SAVINGS|DISCOUNT|MERCHANDISE|FOOD)\b`)
	subtotalRE       = regexp.MustCompile(`\b(?:SUBTOTAL|SUB\s+TOTAL|SUB-TOTAL|BEFORE\s+TAX)\b`)
	taxRE            = regexp.MustCompile(`\b(?:TAX|HST|GST|PST|VAT)(?:\d|\b)`)
	tipRE            = regexp.MustCompile(`\b(?:TIP|GRATUITY|SERVICE)\b`)

	weakTotalRE  = regexp.MustCompile(`\b(?:TOTAL|SUM|AMOUNT|DUE|BAL)\b`)
	misleadingRE = regexp.MustCompile(`\b(?:ITEMS\s+TOTAL|TOTAL\s+SAVINGS|SAVINGS\s+TOTAL|DISCOUNT|MERCHANDISE|FOOD\s+TOTAL)\b`)
)

// isRelationshipAnchor reports whether a context names a subtotal, tax, tip
// or service line.
func isRelationshipAnchor(upper string) bool {
	return subtotalRE.MatchString(upper) || taxRE.MatchString(upper) || tipRE.MatchString(upper)
}
