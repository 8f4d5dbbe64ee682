package amount

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const maxRelationshipTerms = 5

// Fallback band around the latest subtotal for receipts carrying fees that
// are not itemized.
const (
	subtotalBandLow  = 0.95
	subtotalBandHigh = 1.35
)

// ValidateTotalRelationship checks whether total equals some subtotal plus
// optional tax plus optional tip found among the candidates.
func ValidateTotalRelationship(total float64, all []ExtractedAmount) ValidationResult {
	subtotals := latestMatching(all, subtotalRE)
	if len(subtotals) == 0 {
		return ValidationResult{}
	}
	taxes := append(latestMatching(all, taxRE), decimal.Zero)
	tips := append(latestMatching(all, tipRE), decimal.Zero)

	proposed := decimal.NewFromFloat(total)
	bestRatio := math.Inf(1)
	for _, sub := range subtotals {
		for _, tax := range taxes {
			for _, tip := range tips {
				expected := sub.Add(tax).Add(tip)
				if expected.Sign() <= 0 {
					continue
				}
				ratio, _ := proposed.Sub(expected).Abs().Div(expected).Float64()
				bestRatio = math.Min(bestRatio, ratio)
			}
		}
	}

	switch {
	case bestRatio <= 0.02:
		return ValidationResult{Valid: true, Confidence: 0.96}
	case bestRatio <= 0.05:
		return ValidationResult{Valid: true, Confidence: 0.90}
	case bestRatio <= 0.10:
		return ValidationResult{Valid: true, Confidence: 0.80}
	}

	latest, _ := subtotals[0].Float64()
	if total >= subtotalBandLow*latest && total <= subtotalBandHigh*latest {
		return ValidationResult{Valid: true, Confidence: 0.65}
	}
	return ValidationResult{}
}

// latestMatching returns up to maxRelationshipTerms values whose context
// matches re, latest line first.
func latestMatching(all []ExtractedAmount, re *regexp.Regexp) []decimal.Decimal {
	var hits []ExtractedAmount
	for _, a := range all {
		if re.MatchString(strings.ToUpper(a.Context)) {
			hits = append(hits, a)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].LineIndex > hits[j].LineIndex })
	out := make([]decimal.Decimal, 0, maxRelationshipTerms)
	for i := 0; i < len(hits) && i < maxRelationshipTerms; i++ {
		out = append(out, decimal.NewFromFloat(hits[i].Value))
	}
	return out
}
