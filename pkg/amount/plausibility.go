package amount

import "math"

// maxAmount is the exclusive upper bound for a receipt amount.
const maxAmount = 100000

func isPlausibleAmount(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v > 0 && v < maxAmount
}
