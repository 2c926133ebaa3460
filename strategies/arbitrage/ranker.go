package arbitrage

import (
	"fmt"
	"math"
	"sort"

	"github.com/michaelpento.lv/triscan/types"
)

// DefaultTopN is how many opportunities a scan surfaces
const DefaultTopN = 10

// Rank orders opportunities by net profit percentage, best first, keeping
// encounter order among equals, and returns at most limit of them. The
// summary covers every opportunity passed in, not only the returned ones.
func Rank(opps []*types.Opportunity, limit int) ([]*types.Opportunity, types.Summary) {
	sorted := append([]*types.Opportunity(nil), opps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NetProfitPercent > sorted[j].NetProfitPercent
	})

	summary := types.Summary{
		OpportunitiesFound: len(sorted),
		Recommendation:     Recommendation(len(sorted)),
	}
	if len(sorted) > 0 {
		best := sorted[0]
		summary.BestNetProfit = best.NetProfitPercent
		summary.BestGrossProfit = best.GrossProfitPercent
		summary.EstimatedGasCost = best.GasCostToken

		total := 0
		for _, o := range sorted {
			total += o.Confidence
		}
		summary.AverageConfidence = int(math.Round(float64(total) / float64(len(sorted))))
	}

	if limit <= 0 {
		limit = DefaultTopN
	}
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, summary
}

// Recommendation is the one-line advice attached to a scan summary
func Recommendation(found int) string {
	if found == 0 {
		return "No profitable opportunities found. Try different strategy or amount."
	}
	return fmt.Sprintf("Found %d opportunities. Execute within 30 seconds.", found)
}
