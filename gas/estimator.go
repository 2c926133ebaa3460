package gas

import (
	"context"
	"math/big"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
	"go.uber.org/zap"
)

const (
	// SwapGas is the estimated gas of one V3 swap
	SwapGas = 150_000
	// MulticallOverhead covers the wrapping call that chains the swaps
	MulticallOverhead = 50_000
	// FallbackCostETH is the conservative estimate used when fee data is missing
	FallbackCostETH = 0.001

	nativeWrapped = "WETH"
)

// EstimateCycleGas returns the gas units for a cycle with the given number of hops
func EstimateCycleGas(hops int) uint64 {
	return uint64(hops)*SwapGas + MulticallOverhead
}

// Estimator prices arbitrage cycles in gas, ETH and the cycle's start token
type Estimator struct {
	prices *PriceCache
	quoter *dex.HopQuoter
	logger *zap.Logger
}

// NewEstimator creates a cost estimator. The quoter converts ETH costs into other tokens.
func NewEstimator(prices *PriceCache, quoter *dex.HopQuoter, logger *zap.Logger) *Estimator {
	return &Estimator{
		prices: prices,
		quoter: quoter,
		logger: logger,
	}
}

// CostETH estimates the cost in ETH of executing a cycle through the given fee tiers.
// A zero max fee is a valid answer and prices the cycle at zero.
func (e *Estimator) CostETH(ctx context.Context, network *types.Network, fees []types.FeeTier) float64 {
	snapshot := e.prices.Get(ctx, network.ID)
	if snapshot.MaxFeePerGas == nil || snapshot.MaxFeePerGas.Sign() < 0 || len(fees) == 0 {
		return FallbackCostETH
	}

	units := new(big.Int).SetUint64(EstimateCycleGas(len(fees)))
	wei := new(big.Int).Mul(units, snapshot.MaxFeePerGas)
	return WeiToETH(wei).InexactFloat64()
}

// ToToken converts an ETH cost into units of symbol using the 0.3% WETH pool.
// When no quote is available the cost is returned unchanged, still in ETH.
func (e *Estimator) ToToken(ctx context.Context, network *types.Network, costETH float64, symbol string) float64 {
	if symbol == nativeWrapped {
		return costETH
	}
	res := e.quoter.Quote(ctx, network, nativeWrapped, symbol, types.Fee030, 1)
	if !res.OK() {
		e.logger.Debug("Gas conversion unavailable, leaving cost in ETH",
			zap.String("network", network.ID),
			zap.String("token", symbol),
			zap.Stringer("status", res.Status))
		return costETH
	}
	return costETH * res.Amount
}
