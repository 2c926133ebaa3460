package dex

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultPoolCacheTTL bounds how long a validation answer is reused
	DefaultPoolCacheTTL = 5 * time.Minute
	// DefaultPoolCacheSize bounds the number of remembered pool answers
	DefaultPoolCacheSize = 4096
	// DefaultTokenMinLiquidity applies to tokens that carry no threshold
	DefaultTokenMinLiquidity = 100.0

	liquidityDecimals = 18
)

type poolEntry struct {
	key      string
	pool     *types.PoolInfo
	storedAt time.Time
}

// PoolCache remembers, per (network, pair, fee), whether a viable pool exists.
// Negative answers are cached too; oracle failures are not.
type PoolCache struct {
	providers Providers
	store     *lru.Cache
	ttl       time.Duration
	clock     utils.Clock
	metrics   *metrics.ScannerMetrics
	logger    *zap.Logger
}

// NewPoolCache creates a pool validation cache holding up to size entries
func NewPoolCache(providers Providers, size int, ttl time.Duration, clock utils.Clock, m *metrics.ScannerMetrics, logger *zap.Logger) (*PoolCache, error) {
	if size <= 0 {
		size = DefaultPoolCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultPoolCacheTTL
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	store, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool cache: %w", err)
	}
	return &PoolCache{
		providers: providers,
		store:     store,
		ttl:       ttl,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}, nil
}

func poolKey(network, tokenA, tokenB string, fee types.FeeTier) string {
	return fmt.Sprintf("%s-%s-%s-%d", network, tokenA, tokenB, fee)
}

// Validate returns the pool for the pair at fee, or nil when no pool with
// enough liquidity exists or the oracle could not be reached.
func (c *PoolCache) Validate(ctx context.Context, network *types.Network, tokenA, tokenB string, fee types.FeeTier) *types.PoolInfo {
	key := poolKey(network.ID, tokenA, tokenB, fee)
	digest := xxhash.Sum64String(key)
	now := c.clock.Now()

	if v, ok := c.store.Get(digest); ok {
		entry := v.(*poolEntry)
		if entry.key == key && now.Sub(entry.storedAt) < c.ttl {
			c.metrics.ObservePoolCache("hit")
			return entry.pool
		}
	}
	c.metrics.ObservePoolCache("miss")

	a, okA := network.Token(tokenA)
	b, okB := network.Token(tokenB)
	provider, okP := c.providers[network.ID]
	if !okA || !okB || !okP {
		return nil
	}

	pool, err := provider.PoolFor(ctx, a.Address, b.Address, fee)
	if err != nil {
		c.metrics.ObservePoolCache("error")
		c.logger.Debug("Pool validation failed",
			zap.String("network", network.ID),
			zap.String("token_a", tokenA),
			zap.String("token_b", tokenB),
			zap.Uint32("fee", uint32(fee)),
			zap.Error(err))
		return nil
	}

	var info *types.PoolInfo
	if pool != nil && pool.Liquidity != nil {
		liquidity := FromUnits(pool.Liquidity, liquidityDecimals)
		if liquidity >= minLiquidity(a, b) {
			info = &types.PoolInfo{Address: pool.Address, Liquidity: liquidity}
		}
	}

	c.store.Add(digest, &poolEntry{key: key, pool: info, storedAt: now})
	return info
}

// Len returns the number of cached answers, fresh or stale
func (c *PoolCache) Len() int {
	return c.store.Len()
}

func minLiquidity(a, b types.Token) float64 {
	la, lb := a.MinLiquidity, b.MinLiquidity
	if la <= 0 {
		la = DefaultTokenMinLiquidity
	}
	if lb <= 0 {
		lb = DefaultTokenMinLiquidity
	}
	if la < lb {
		return la
	}
	return lb
}
