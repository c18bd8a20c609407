package metrics

import "math"

// nearestRank returns the nearest-rank quantile of a sorted slice:
// sorted[min(n-1, round(q*(n-1)))]. The index is computed once from the
// slice length, so repeated calls on the same data always agree.
func nearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Round(q * float64(n-1)))
	if idx > n-1 {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
