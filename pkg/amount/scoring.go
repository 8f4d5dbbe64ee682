package amount

import (
	"math"
	"sort"
	"strings"
)

// Score contributions. Every signal is additive.
const (
	strongTotalBonus  = 4.2
	weakTotalBonus    = 1.8
	misleadingPenalty = -2.2
	paymentPenalty    = -2.8

	totalCategoryBonus    = 1.4
	subtotalCategoryBonus = 0.4
	taxTipPenalty         = -0.8
	itemPenalty           = -0.4

	validationWeight  = 2.4
	unanchoredPenalty = -0.6
	maxMagnitudeBonus = 1.2
	topValueBonus     = 0.5
	positionWeight    = 1.6
	smallValuePenalty = -1.0
	smallValueCeiling = 1.0
)

// Selection thresholds.
const (
	acceptScore     = 1.2
	validatedBonus  = 0.1
	maxConfidence   = 0.98
	minConfidence   = 0.2
	rejectConfFloor = 0.1
	rejectConfCeil  = 0.35
	minMarginFactor = 0.45
)

// ExtractAmountsFromText finds, scores and selects the bill total in text.
// It is a pure function of text.
func ExtractAmountsFromText(text string) ExtractedData {
	data, _ := ExtractWithRanking(text)
	return data
}

// ExtractWithRanking is ExtractAmountsFromText plus the scored candidates,
// best first, for callers offering manual override.
func ExtractWithRanking(text string) (ExtractedData, []ScoredAmount) {
	candidates := FindAmountsInText(text)
	sel := Select(candidates, len(splitLines(text)))
	data := ExtractedData{
		Confidence: sel.Confidence,
		AllAmounts: candidates,
		RawText:    text,
	}
	if sel.Chosen != nil {
		data.Amount = sel.Chosen.Value
	}
	return data, sel.Ranked
}

// Select scores every candidate and picks the best one if it clears the
// acceptance threshold. totalLines is the line count of the source text.
func Select(candidates []ExtractedAmount, totalLines int) Selection {
	if len(candidates) == 0 {
		return Selection{}
	}
	st := newValueStats(candidates)
	anchored := false
	for _, c := range candidates {
		if isRelationshipAnchor(strings.ToUpper(c.Context)) {
			anchored = true
			break
		}
	}

	ranked := make([]ScoredAmount, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scoreCandidate(c, candidates, st, anchored, totalLines))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].LineIndex > ranked[j].LineIndex
	})

	best := ranked[0]
	if best.Score < acceptScore {
		return Selection{
			Confidence: rejectionConfidence(best.Score),
			Ranked:     ranked,
		}
	}

	margin := best.Score
	if len(ranked) > 1 {
		margin = best.Score - ranked[1].Score
	}
	conf := clamp(best.Score/8, minConfidence, maxConfidence) * clamp(margin/3, minMarginFactor, 1)
	if best.Validation.Valid {
		conf = math.Min(conf+validatedBonus, maxConfidence)
	}
	return Selection{Chosen: &best, Confidence: conf, Ranked: ranked}
}

// rejectionConfidence reports how close a rejected best candidate came.
// With acceptScore at 1.2 a rejected score tops out at 0.3, below the ceiling.
func rejectionConfidence(score float64) float64 {
	return clamp(score/4, rejectConfFloor, rejectConfCeil)
}

func scoreCandidate(c ExtractedAmount, all []ExtractedAmount, st valueStats, anchored bool, totalLines int) ScoredAmount {
	upper := strings.ToUpper(c.Context)
	cat := categoryOf(c, upper, st)
	v := ValidateTotalRelationship(c.Value, all)

	score := 0.0
	if strongTotalRE.MatchString(upper) {
		score += strongTotalBonus
	}
	if weakTotalRE.MatchString(upper) {
		score += weakTotalBonus
	}
	if misleadingRE.MatchString(upper) {
		score += misleadingPenalty
	}
	if cat == CategoryPayment || paymentRE.MatchString(upper) {
		score += paymentPenalty
	}

	switch cat {
	case CategoryTotal:
		score += totalCategoryBonus
	case CategorySubtotal:
		score += subtotalCategoryBonus
	case CategoryTax, CategoryTip:
		score += taxTipPenalty
	case CategoryItem:
		score += itemPenalty
	}

	if v.Valid {
		score += validationWeight * v.Confidence
	} else if anchored {
		score += unanchoredPenalty
	}

	if st.max > 0 {
		score += math.Min(maxMagnitudeBonus, c.Value/st.max)
	}
	if st.inTop3(c.Value) {
		score += topValueBonus
	}
	if totalLines > 1 {
		score += positionWeight * float64(c.LineIndex) / float64(totalLines-1)
	}
	if c.Value < smallValueCeiling {
		score += smallValuePenalty
	}

	return ScoredAmount{ExtractedAmount: c, Category: cat, Score: score, Validation: v}
}
