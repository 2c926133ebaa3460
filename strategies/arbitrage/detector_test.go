package arbitrage_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/gas"
	"github.com/michaelpento.lv/triscan/strategies/arbitrage"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"github.com/michaelpento.lv/triscan/utils/testutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var defiStrategy = &types.Strategy{
	Name:              "defi",
	Categories:        []types.Category{types.CategoryStable, types.CategoryMajor, types.CategoryDefi},
	FeePriority:       []types.FeeTier{types.Fee030, types.Fee005, types.Fee100},
	MaxPaths:          15,
	MaxFeeTiersPerHop: 1,
	Topology:          types.TopologyDefi,
}

type fixture struct {
	network  *types.Network
	provider *testutils.FakeProvider
	metrics  *metrics.ScannerMetrics
	detector *arbitrage.Detector
}

// newFixture prices USDC -> WETH -> ARB -> USDC at a 1.5% gross gain and gas at 2 gwei
func newFixture(t *testing.T) *fixture {
	t.Helper()
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	provider.DefaultLiquidity = 1e9
	provider.Fees = &dex.FeeData{MaxFeePerGas: testutils.Gwei(2), MaxPriorityFeePerGas: testutils.Gwei(1), Block: 10}
	provider.SetRate("USDC", "WETH", types.Fee030, 0.0005)
	provider.SetRate("WETH", "ARB", types.Fee030, 2000)
	provider.SetRate("ARB", "USDC", types.Fee030, 1.015)
	provider.SetRate("WETH", "USDC", types.Fee030, 2000)

	m := metrics.NewScannerMetrics(prometheus.NewRegistry(), "test")
	providers := dex.Providers{network.ID: provider}
	clock := testutils.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	pools, err := dex.NewPoolCache(providers, 256, dex.DefaultPoolCacheTTL, clock, m, zap.NewNop())
	require.NoError(t, err)
	quoter := dex.NewHopQuoter(providers, dex.RetryConfig{MaxRetries: 2}, m, zap.NewNop())
	prices := gas.NewPriceCache(providers, gas.DefaultPriceTTL, clock, m, zap.NewNop())
	estimator := gas.NewEstimator(prices, quoter, zap.NewNop())

	return &fixture{
		network:  network,
		provider: provider,
		metrics:  m,
		detector: arbitrage.NewDetector(pools, quoter, estimator, 0, clock, m, zap.NewNop()),
	}
}

func TestDetectorSearchProfitablePath(t *testing.T) {
	f := newFixture(t)

	opp := f.detector.Search(context.Background(), f.network, types.Path{"USDC", "WETH", "ARB"}, 1000, defiStrategy)
	require.NotNil(t, opp)

	assert.InDelta(t, 1015, opp.OutputAmount, 1e-4)
	assert.InDelta(t, 15, opp.GrossProfit, 1e-4)
	assert.InDelta(t, 1.5, opp.GrossProfitPercent, 1e-5)
	// 500,000 gas at 2 gwei is 0.001 ETH, i.e. 2 USDC
	assert.InDelta(t, 2, opp.GasCostToken, 1e-6)
	assert.InDelta(t, 13, opp.NetProfit, 1e-4)
	assert.InDelta(t, 1.3, opp.NetProfitPercent, 1e-5)

	assert.Equal(t, [3]types.FeeTier{types.Fee030, types.Fee030, types.Fee030}, opp.Fees)
	assert.Equal(t, [3]string{"0.3%", "0.3%", "0.3%"}, opp.FeeLabels)
	assert.Equal(t, "USDC → WETH → ARB → USDC", opp.PathLabel)
	assert.Equal(t, "arbitrum", opp.Network)
	assert.Equal(t, "defi", opp.Strategy)
	assert.Equal(t, 95, opp.Confidence)
	for i := range opp.PriceImpacts {
		assert.Less(t, opp.PriceImpacts[i], 0.01)
		assert.NotEqual(t, [20]byte{}, [20]byte(opp.PoolAddresses[i]))
	}
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), opp.Timestamp)
}

func TestDetectorSearchPrunesHighImpact(t *testing.T) {
	f := newFixture(t)
	// the 0.3% WETH/ARB pool pays more but is shallow
	f.provider.SetRate("WETH", "ARB", types.Fee030, 2100)
	f.provider.SetDepth("WETH", "ARB", types.Fee030, 10)
	f.provider.SetRate("WETH", "ARB", types.Fee005, 2000)

	strategy := *defiStrategy
	strategy.FeePriority = []types.FeeTier{types.Fee030, types.Fee005}
	strategy.MaxFeeTiersPerHop = 2

	opp := f.detector.Search(context.Background(), f.network, types.Path{"USDC", "WETH", "ARB"}, 1000, &strategy)
	require.NotNil(t, opp)
	assert.Equal(t, [3]types.FeeTier{types.Fee030, types.Fee005, types.Fee030}, opp.Fees)
	for _, impact := range opp.PriceImpacts {
		assert.LessOrEqual(t, impact, arbitrage.DefaultImpactCeiling)
	}
	// the shallow pool plus the two unpriced 0.05% legs
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.PrunedCombos.WithLabelValues("impact")))
}

func TestDetectorSearchKeepsBestNet(t *testing.T) {
	f := newFixture(t)
	f.provider.SetRate("ARB", "USDC", types.Fee005, 1.02)

	strategy := *defiStrategy
	strategy.MaxFeeTiersPerHop = 2

	opp := f.detector.Search(context.Background(), f.network, types.Path{"USDC", "WETH", "ARB"}, 1000, &strategy)
	require.NotNil(t, opp)
	assert.Equal(t, types.Fee005, opp.Fees[2])
	assert.InDelta(t, 2.0, opp.GrossProfitPercent, 1e-5)
}

func TestDetectorSearchTieKeepsFirst(t *testing.T) {
	f := newFixture(t)
	f.provider.SetRate("ARB", "USDC", types.Fee005, 1.015)

	strategy := *defiStrategy
	strategy.MaxFeeTiersPerHop = 2

	opp := f.detector.Search(context.Background(), f.network, types.Path{"USDC", "WETH", "ARB"}, 1000, &strategy)
	require.NotNil(t, opp)
	assert.Equal(t, types.Fee030, opp.Fees[2])
}

func TestDetectorSearchNoPool(t *testing.T) {
	f := newFixture(t)
	f.provider.DefaultLiquidity = 0
	f.provider.SetPool("USDC", "WETH", types.Fee030, 1e9)
	f.provider.SetPool("WETH", "ARB", types.Fee030, 1e9)

	opp := f.detector.Search(context.Background(), f.network, types.Path{"USDC", "WETH", "ARB"}, 1000, defiStrategy)
	assert.Nil(t, opp)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PrunedCombos.WithLabelValues("pool")))
}

func TestDetectorSearchNoLiquidity(t *testing.T) {
	f := newFixture(t)

	opp := f.detector.Search(context.Background(), f.network, types.Path{"USDC", "WETH", "GMX"}, 1000, defiStrategy)
	assert.Nil(t, opp)
}

func TestDetectorSearchUnprofitableStillReturned(t *testing.T) {
	f := newFixture(t)
	f.provider.SetRate("ARB", "USDC", types.Fee030, 0.99)

	opp := f.detector.Search(context.Background(), f.network, types.Path{"USDC", "WETH", "ARB"}, 1000, defiStrategy)
	require.NotNil(t, opp)
	assert.Less(t, opp.NetProfitPercent, 0.0)
	assert.False(t, math.IsInf(opp.NetProfitPercent, 0))
}

func TestPriceImpact(t *testing.T) {
	f := newFixture(t)
	quoter := dex.NewHopQuoter(dex.Providers{f.network.ID: f.provider}, dex.RetryConfig{}, nil, zap.NewNop())
	ctx := context.Background()

	impact, quote := arbitrage.PriceImpact(ctx, quoter, f.network, "USDC", "WETH", types.Fee030, 1000)
	assert.InDelta(t, 0, impact, 1e-6)
	assert.InDelta(t, 0.5, quote.Amount, 1e-12)

	f.provider.SetDepth("WETH", "ARB", types.Fee030, 50)
	impact, _ = arbitrage.PriceImpact(ctx, quoter, f.network, "WETH", "ARB", types.Fee030, 5)
	// 5/50 of depth consumed by the full trade versus 0.005/50 by the marginal one
	assert.InDelta(t, 9.99, impact, 0.01)

	impact, quote = arbitrage.PriceImpact(ctx, quoter, f.network, "USDC", "GMX", types.Fee030, 1000)
	assert.True(t, math.IsInf(impact, 1))
	assert.False(t, quote.OK())
}
