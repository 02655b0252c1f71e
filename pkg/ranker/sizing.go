package ranker

import "math"

// OptimizeQuantities searches integer lot counts (qa, qb) that maximize
// total contract cost without exceeding the limit, tie-breaking toward
// the qa/qb ratio closest to the DV01 hedge ratio. The B count spans
// 1..floor(limit/costB); the A count is the ratio-rounded match,
// floored at one lot. When nothing fits the budget both legs default
// to a single lot.
func OptimizeQuantities(costA, costB, ratio, limit float64) (int, int) {
	bestQA, bestQB := 0, 0
	bestCost := math.Inf(-1)
	bestErr := math.Inf(1)

	maxQB := 1
	if costB > 0 {
		maxQB = int(limit / costB)
	}
	for qb := 1; qb <= maxQB; qb++ {
		qa := int(math.Round(ratio * float64(qb)))
		if qa < 1 {
			qa = 1
		}
		cost := float64(qa)*costA + float64(qb)*costB
		if cost > limit {
			continue
		}
		ratioErr := math.Abs(float64(qa)/float64(qb) - ratio)
		if cost > bestCost || (cost == bestCost && ratioErr < bestErr) {
			bestQA, bestQB = qa, qb
			bestCost, bestErr = cost, ratioErr
		}
	}
	if bestQA == 0 || bestQB == 0 {
		return 1, 1
	}
	return bestQA, bestQB
}
