package gas_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/gas"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"github.com/michaelpento.lv/triscan/utils/testutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*types.Network, *testutils.FakeProvider, *testutils.FakeClock, *gas.PriceCache, *gas.Estimator) {
	t.Helper()
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	provider.Fees = &dex.FeeData{
		MaxFeePerGas:         testutils.Gwei(2),
		MaxPriorityFeePerGas: testutils.Gwei(1),
		Block:                123,
	}
	providers := dex.Providers{"arbitrum": provider}
	clock := testutils.NewFakeClock(time.Unix(1_700_000_000, 0))
	prices := gas.NewPriceCache(providers, 15*time.Second, clock, nil, zap.NewNop())
	quoter := dex.NewHopQuoter(providers, dex.RetryConfig{}, nil, zap.NewNop())
	return network, provider, clock, prices, gas.NewEstimator(prices, quoter, zap.NewNop())
}

func TestPriceCacheTTL(t *testing.T) {
	_, provider, clock, prices, _ := setup(t)
	ctx := context.Background()

	snap := prices.Get(ctx, "arbitrum")
	assert.Equal(t, testutils.Gwei(2).String(), snap.MaxFeePerGas.String())
	assert.Equal(t, uint64(123), snap.Block)

	clock.Advance(10 * time.Second)
	prices.Get(ctx, "arbitrum")
	_, _, fees := provider.Calls()
	assert.Equal(t, 1, fees)

	clock.Advance(6 * time.Second)
	prices.Get(ctx, "arbitrum")
	_, _, fees = provider.Calls()
	assert.Equal(t, 2, fees)
}

func TestPriceCacheFallbackNotCached(t *testing.T) {
	_, provider, _, prices, _ := setup(t)
	provider.FeeErr = testutils.ErrTransport
	ctx := context.Background()

	snap := prices.Get(ctx, "arbitrum")
	assert.Equal(t, "30", gas.WeiToGwei(snap.MaxFeePerGas).String())
	assert.Equal(t, "1", gas.WeiToGwei(snap.MaxPriorityFeePerGas).String())
	assert.Zero(t, snap.Block)

	provider.FeeErr = nil
	snap = prices.Get(ctx, "arbitrum")
	assert.Equal(t, "2", gas.WeiToGwei(snap.MaxFeePerGas).String())
}

func TestPriceCacheFillsMissingFees(t *testing.T) {
	_, provider, _, prices, _ := setup(t)
	provider.Fees = &dex.FeeData{Block: 9}

	snap := prices.Get(context.Background(), "arbitrum")
	assert.Equal(t, "30", gas.WeiToGwei(snap.MaxFeePerGas).String())
	assert.Equal(t, "1", gas.WeiToGwei(snap.MaxPriorityFeePerGas).String())
	assert.Equal(t, uint64(9), snap.Block)
}

func TestPriceCacheMetrics(t *testing.T) {
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	provider.Fees = &dex.FeeData{MaxFeePerGas: testutils.Gwei(3)}
	m := metrics.NewScannerMetrics(prometheus.NewRegistry(), "test")
	prices := gas.NewPriceCache(dex.Providers{"arbitrum": provider}, time.Minute, nil, m, zap.NewNop())
	ctx := context.Background()

	prices.Get(ctx, "arbitrum")
	prices.Get(ctx, "arbitrum")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.GasCache.WithLabelValues("miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GasCache.WithLabelValues("hit")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.GasPriceGwei.WithLabelValues("arbitrum")))
}

func TestEstimateCycleGas(t *testing.T) {
	assert.Equal(t, uint64(500_000), gas.EstimateCycleGas(3))
}

func TestCostETH(t *testing.T) {
	network, provider, clock, _, estimator := setup(t)
	fees := []types.FeeTier{types.Fee030, types.Fee030, types.Fee030}
	ctx := context.Background()

	// 500,000 gas at 2 gwei
	assert.InDelta(t, 0.001, estimator.CostETH(ctx, network, fees), 1e-12)

	provider.Fees = &dex.FeeData{MaxFeePerGas: testutils.Gwei(10)}
	assert.InDelta(t, 0.001, estimator.CostETH(ctx, network, fees), 1e-12)

	clock.Advance(16 * time.Second)
	assert.InDelta(t, 0.005, estimator.CostETH(ctx, network, fees), 1e-12)
}

func TestCostETHZeroFee(t *testing.T) {
	network, provider, _, _, estimator := setup(t)
	provider.Fees = &dex.FeeData{MaxFeePerGas: big.NewInt(0), MaxPriorityFeePerGas: big.NewInt(0), Block: 5}
	fees := []types.FeeTier{types.Fee030, types.Fee030, types.Fee030}
	ctx := context.Background()

	assert.Zero(t, estimator.CostETH(ctx, network, fees))
	assert.Zero(t, estimator.ToToken(ctx, network, estimator.CostETH(ctx, network, fees), "USDC"))
}

func TestCostETHUnknownNetworkUsesFallbackPrice(t *testing.T) {
	_, _, _, _, estimator := setup(t)
	other := &types.Network{ID: "polygon"}
	fees := []types.FeeTier{types.Fee030, types.Fee030, types.Fee030}

	// 500,000 gas at the 30 gwei fallback
	assert.InDelta(t, 0.015, estimator.CostETH(context.Background(), other, fees), 1e-12)
}

func TestToToken(t *testing.T) {
	network, provider, _, _, estimator := setup(t)
	ctx := context.Background()

	assert.Equal(t, 0.001, estimator.ToToken(ctx, network, 0.001, "WETH"))

	provider.SetRate("WETH", "USDC", types.Fee030, 2000)
	assert.InDelta(t, 2.0, estimator.ToToken(ctx, network, 0.001, "USDC"), 1e-9)

	// no WETH/GMX pool: the cost stays in ETH
	assert.Equal(t, 0.001, estimator.ToToken(ctx, network, 0.001, "GMX"))
}

func TestCostETHNoFees(t *testing.T) {
	network, _, _, _, estimator := setup(t)
	require.Equal(t, gas.FallbackCostETH, estimator.CostETH(context.Background(), network, nil))
}
