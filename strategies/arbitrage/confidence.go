package arbitrage

import "math"

// ConfidenceScore rates an opportunity from 0 to 100 using the share of gross
// profit that survives gas, the worst hop impact and the gross profit size.
// Profits are percentages of the input amount.
func ConfidenceScore(grossPercent, netPercent float64, impacts [3]float64) int {
	score := 0.0

	if netPercent > 0 && grossPercent > 0 {
		score += math.Min(40, netPercent/grossPercent*40)
	}

	maxImpact := math.Max(impacts[0], math.Max(impacts[1], impacts[2]))
	switch {
	case maxImpact < 0.5:
		score += 30
	case maxImpact < 1.0:
		score += 20
	case maxImpact < 1.5:
		score += 10
	}

	switch {
	case grossPercent > 1.0:
		score += 30
	case grossPercent > 0.5:
		score += 20
	case grossPercent > 0.2:
		score += 10
	case grossPercent > 0.1:
		score += 5
	}

	rounded := int(math.Round(score))
	if rounded > 100 {
		return 100
	}
	if rounded < 0 {
		return 0
	}
	return rounded
}
