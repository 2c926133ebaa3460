package arbitrage

import (
	"context"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/gas"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"go.uber.org/zap"
)

// hop is one leg of a cycle that passed every pruning check
type hop struct {
	fee    types.FeeTier
	pool   *types.PoolInfo
	impact float64
	out    float64
}

// Detector finds the most profitable fee-tier combination for a path
type Detector struct {
	pools         *dex.PoolCache
	quoter        *dex.HopQuoter
	gas           *gas.Estimator
	impactCeiling float64
	clock         utils.Clock
	metrics       *metrics.ScannerMetrics
	logger        *zap.Logger
}

// NewDetector creates a detector. A non-positive impactCeiling uses DefaultImpactCeiling.
func NewDetector(pools *dex.PoolCache, quoter *dex.HopQuoter, estimator *gas.Estimator, impactCeiling float64, clock utils.Clock, m *metrics.ScannerMetrics, logger *zap.Logger) *Detector {
	if impactCeiling <= 0 {
		impactCeiling = DefaultImpactCeiling
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Detector{
		pools:         pools,
		quoter:        quoter,
		gas:           estimator,
		impactCeiling: impactCeiling,
		clock:         clock,
		metrics:       m,
		logger:        logger,
	}
}

// Search walks every fee-tier combination of path, hop by hop, and returns
// the combination with the highest net profit percentage, or nil when no
// combination survives pruning. The result is not filtered by profitability.
func (d *Detector) Search(ctx context.Context, network *types.Network, path types.Path, amountIn float64, strategy *types.Strategy) *types.Opportunity {
	a, b, c := path[0], path[1], path[2]
	tiers1 := hopTiers(network, a, b, strategy)
	tiers2 := hopTiers(network, b, c, strategy)
	tiers3 := hopTiers(network, c, a, strategy)

	var best *types.Opportunity
	for _, fee1 := range tiers1 {
		h1, ok := d.evaluateHop(ctx, network, a, b, fee1, amountIn)
		if !ok {
			continue
		}
		for _, fee2 := range tiers2 {
			h2, ok := d.evaluateHop(ctx, network, b, c, fee2, h1.out)
			if !ok {
				continue
			}
			for _, fee3 := range tiers3 {
				h3, ok := d.evaluateHop(ctx, network, c, a, fee3, h2.out)
				if !ok {
					continue
				}

				opp := d.assemble(ctx, network, path, strategy, amountIn, [3]hop{h1, h2, h3})
				if best == nil || opp.NetProfitPercent > best.NetProfitPercent {
					best = opp
				}
			}
		}
	}
	return best
}

// evaluateHop applies the pool, impact and quote checks to one leg
func (d *Detector) evaluateHop(ctx context.Context, network *types.Network, tokenIn, tokenOut string, fee types.FeeTier, amountIn float64) (hop, bool) {
	pool := d.pools.Validate(ctx, network, tokenIn, tokenOut, fee)
	if pool == nil {
		d.metrics.ObservePrune("pool")
		return hop{}, false
	}

	impact, quote := PriceImpact(ctx, d.quoter, network, tokenIn, tokenOut, fee, amountIn)
	if impact > d.impactCeiling {
		d.metrics.ObservePrune("impact")
		return hop{}, false
	}
	if !quote.OK() {
		d.metrics.ObservePrune("quote")
		return hop{}, false
	}

	return hop{fee: fee, pool: pool, impact: impact, out: quote.Amount}, true
}

func (d *Detector) assemble(ctx context.Context, network *types.Network, path types.Path, strategy *types.Strategy, amountIn float64, hops [3]hop) *types.Opportunity {
	fees := [3]types.FeeTier{hops[0].fee, hops[1].fee, hops[2].fee}
	final := hops[2].out

	gross := final - amountIn
	costETH := d.gas.CostETH(ctx, network, fees[:])
	gasCost := d.gas.ToToken(ctx, network, costETH, path[0])
	net := gross - gasCost

	opp := &types.Opportunity{
		Network:            network.ID,
		Strategy:           strategy.Name,
		Path:               path,
		PathLabel:          path.String(),
		InputAmount:        amountIn,
		OutputAmount:       final,
		GrossProfit:        gross,
		GrossProfitPercent: gross / amountIn * 100,
		NetProfit:          net,
		NetProfitPercent:   net / amountIn * 100,
		GasCostToken:       gasCost,
		Fees:               fees,
		Timestamp:          d.clock.Now().UTC(),
	}
	for i, h := range hops {
		opp.FeeLabels[i] = h.fee.Label()
		opp.PoolAddresses[i] = h.pool.Address
		opp.PriceImpacts[i] = h.impact
	}
	opp.Confidence = ConfidenceScore(opp.GrossProfitPercent, opp.NetProfitPercent, opp.PriceImpacts)

	d.logger.Debug("Evaluated combination",
		zap.String("network", network.ID),
		zap.String("path", opp.PathLabel),
		zap.Uint32s("fees", []uint32{uint32(fees[0]), uint32(fees[1]), uint32(fees[2])}),
		zap.Float64("net_profit_percent", opp.NetProfitPercent))
	return opp
}
