package amount

import (
	"math"
	"sort"
	"strings"
)

const (
	tieTolerance      = 0.01
	nearMaxRatio      = 0.9
	topValueSetLength = 3
)

// valueStats holds the magnitude facts every candidate is compared against.
type valueStats struct {
	max  float64
	top3 []float64
}

func newValueStats(all []ExtractedAmount) valueStats {
	values := make([]float64, 0, len(all))
	for _, a := range all {
		values = append(values, a.Value)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	st := valueStats{}
	if len(values) > 0 {
		st.max = values[0]
	}
	st.top3 = values[:min(topValueSetLength, len(values))]
	return st
}

func (st valueStats) inTop3(v float64) bool {
	for _, t := range st.top3 {
		if math.Abs(v-t) <= tieTolerance {
			return true
		}
	}
	return false
}

// CategorizeAmount labels a candidate using keywords on its context and its
// magnitude relative to all candidates.
func CategorizeAmount(c ExtractedAmount, all []ExtractedAmount) CategorizedAmount {
	if !containsCandidate(all, c) {
		all = append(all[:len(all):len(all)], c)
	}
	return CategorizedAmount{
		ExtractedAmount: c,
		Category:        categoryOf(c, strings.ToUpper(c.Context), newValueStats(all)),
	}
}

func categoryOf(c ExtractedAmount, upper string, st valueStats) Category {
	switch {
	case paymentRE.MatchString(upper):
		return CategoryPayment
	case strongTotalRE.MatchString(upper):
		return CategoryTotal
	case totalWordRE.MatchString(upper) && !totalQualifierRE.MatchString(upper):
		return CategoryTotal
	case subtotalRE.MatchString(upper):
		return CategorySubtotal
	case taxRE.MatchString(upper):
		return CategoryTax
	case tipRE.MatchString(upper):
		return CategoryTip
	case c.Value >= nearMaxRatio*st.max || st.inTop3(c.Value):
		// large but unlabeled: plausible total, not proof of one
		return CategoryUnknown
	}
	return CategoryItem
}

func containsCandidate(all []ExtractedAmount, c ExtractedAmount) bool {
	for _, a := range all {
		if a == c {
			return true
		}
	}
	return false
}
