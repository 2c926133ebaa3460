package dex_test

import (
	"context"
	"testing"
	"time"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPoolCache(t *testing.T, provider *testutils.FakeProvider, clock *testutils.FakeClock) *dex.PoolCache {
	cache, err := dex.NewPoolCache(dex.Providers{"arbitrum": provider}, 128, 5*time.Minute, clock, nil, zap.NewNop())
	require.NoError(t, err)
	return cache
}

func TestPoolCacheValidate(t *testing.T) {
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	provider.SetPool("WETH", "ARB", types.Fee030, 250_000)
	clock := testutils.NewFakeClock(time.Unix(1_700_000_000, 0))
	cache := newPoolCache(t, provider, clock)
	ctx := context.Background()

	pool := cache.Validate(ctx, network, "WETH", "ARB", types.Fee030)
	require.NotNil(t, pool)
	assert.InDelta(t, 250_000, pool.Liquidity, 1e-6)

	// second call inside the TTL is served from the cache
	again := cache.Validate(ctx, network, "WETH", "ARB", types.Fee030)
	assert.Equal(t, pool, again)
	_, pools, _ := provider.Calls()
	assert.Equal(t, 1, pools)

	clock.Advance(5*time.Minute + time.Second)
	cache.Validate(ctx, network, "WETH", "ARB", types.Fee030)
	_, pools, _ = provider.Calls()
	assert.Equal(t, 2, pools)
}

func TestPoolCacheMinLiquidity(t *testing.T) {
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	// USDC wants 1,000,000, WETH wants 100: the smaller threshold applies
	provider.SetPool("USDC", "WETH", types.Fee005, 150)
	provider.SetPool("USDC", "WETH", types.Fee030, 50)
	cache := newPoolCache(t, provider, testutils.NewFakeClock(time.Now()))
	ctx := context.Background()

	assert.NotNil(t, cache.Validate(ctx, network, "USDC", "WETH", types.Fee005))
	assert.Nil(t, cache.Validate(ctx, network, "USDC", "WETH", types.Fee030))

	// the negative answer is cached
	assert.Nil(t, cache.Validate(ctx, network, "USDC", "WETH", types.Fee030))
	_, pools, _ := provider.Calls()
	assert.Equal(t, 2, pools)
}

func TestPoolCacheAbsentPoolIsCached(t *testing.T) {
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	cache := newPoolCache(t, provider, testutils.NewFakeClock(time.Now()))
	ctx := context.Background()

	assert.Nil(t, cache.Validate(ctx, network, "GMX", "DAI", types.Fee100))
	assert.Nil(t, cache.Validate(ctx, network, "GMX", "DAI", types.Fee100))
	_, pools, _ := provider.Calls()
	assert.Equal(t, 1, pools)
	assert.Equal(t, 1, cache.Len())
}

func TestPoolCacheErrorNotCached(t *testing.T) {
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	provider.PoolErr = testutils.ErrTransport
	provider.DefaultLiquidity = 1e9
	cache := newPoolCache(t, provider, testutils.NewFakeClock(time.Now()))
	ctx := context.Background()

	assert.Nil(t, cache.Validate(ctx, network, "WETH", "WBTC", types.Fee005))
	assert.Equal(t, 0, cache.Len())

	provider.PoolErr = nil
	assert.NotNil(t, cache.Validate(ctx, network, "WETH", "WBTC", types.Fee005))
	_, pools, _ := provider.Calls()
	assert.Equal(t, 2, pools)
}

func TestPoolCacheUnknownToken(t *testing.T) {
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	provider.DefaultLiquidity = 1e9
	cache := newPoolCache(t, provider, testutils.NewFakeClock(time.Now()))

	assert.Nil(t, cache.Validate(context.Background(), network, "WETH", "DOGE", types.Fee030))
	_, pools, _ := provider.Calls()
	assert.Zero(t, pools)
}

func TestPoolCacheKeyIncludesOrientation(t *testing.T) {
	network := testutils.TestNetwork()
	provider := testutils.NewFakeProvider(network)
	provider.DefaultLiquidity = 1e9
	cache := newPoolCache(t, provider, testutils.NewFakeClock(time.Now()))
	ctx := context.Background()

	cache.Validate(ctx, network, "WETH", "ARB", types.Fee030)
	cache.Validate(ctx, network, "ARB", "WETH", types.Fee030)
	cache.Validate(ctx, network, "WETH", "ARB", types.Fee100)
	assert.Equal(t, 3, cache.Len())
}
