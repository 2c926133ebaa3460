package arbitrage

import (
	"context"
	"math"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
)

const (
	// DefaultImpactCeiling is the largest per-hop price impact, in percent, a path may carry
	DefaultImpactCeiling = 2.0

	smallTradeFraction = 0.001
)

// PriceImpact compares the effective price of a trade sized at 0.1% of
// amountIn with the full-size trade and returns the degradation in percent,
// together with the full-size quote. It returns +Inf when either quote fails.
func PriceImpact(ctx context.Context, quoter *dex.HopQuoter, network *types.Network, tokenIn, tokenOut string, fee types.FeeTier, amountIn float64) (float64, dex.QuoteResult) {
	small := amountIn * smallTradeFraction
	quoteSmall := quoter.Quote(ctx, network, tokenIn, tokenOut, fee, small)
	if !quoteSmall.OK() {
		return math.Inf(1), quoteSmall
	}
	quoteActual := quoter.Quote(ctx, network, tokenIn, tokenOut, fee, amountIn)
	if !quoteActual.OK() {
		return math.Inf(1), quoteActual
	}

	priceSmall := quoteSmall.Amount / small
	priceActual := quoteActual.Amount / amountIn
	return math.Max(0, (priceSmall-priceActual)/priceSmall*100), quoteActual
}
