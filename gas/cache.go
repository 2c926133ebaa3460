package gas

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultPriceTTL bounds how long a fee snapshot is reused
const DefaultPriceTTL = 15 * time.Second

var (
	fallbackMaxFee      = big.NewInt(30_000_000_000)
	fallbackPriorityFee = big.NewInt(1_000_000_000)
)

// FallbackSnapshot is served when the oracle cannot be reached
func FallbackSnapshot() types.GasSnapshot {
	return types.GasSnapshot{
		MaxFeePerGas:         new(big.Int).Set(fallbackMaxFee),
		MaxPriorityFeePerGas: new(big.Int).Set(fallbackPriorityFee),
	}
}

type cachedSnapshot struct {
	snapshot types.GasSnapshot
	storedAt time.Time
}

// PriceCache keeps one fee snapshot per network
type PriceCache struct {
	providers dex.Providers
	ttl       time.Duration
	clock     utils.Clock
	metrics   *metrics.ScannerMetrics
	logger    *zap.Logger

	mu        sync.RWMutex
	snapshots map[string]cachedSnapshot
}

// NewPriceCache creates a gas price cache
func NewPriceCache(providers dex.Providers, ttl time.Duration, clock utils.Clock, m *metrics.ScannerMetrics, logger *zap.Logger) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &PriceCache{
		providers: providers,
		ttl:       ttl,
		clock:     clock,
		metrics:   m,
		logger:    logger,
		snapshots: make(map[string]cachedSnapshot),
	}
}

// Get returns the fee snapshot for network, refreshing it when stale.
// It never fails: oracle errors yield the fallback snapshot, which is not cached.
func (c *PriceCache) Get(ctx context.Context, network string) types.GasSnapshot {
	now := c.clock.Now()

	c.mu.RLock()
	cached, ok := c.snapshots[network]
	c.mu.RUnlock()
	if ok && now.Sub(cached.storedAt) < c.ttl {
		c.metrics.ObserveGasCache("hit")
		return cached.snapshot
	}
	c.metrics.ObserveGasCache("miss")

	provider, ok := c.providers[network]
	if !ok {
		return FallbackSnapshot()
	}
	fees, err := provider.CurrentFees(ctx)
	if err != nil || fees == nil {
		c.metrics.ObserveGasCache("error")
		c.logger.Debug("Gas price unavailable, using fallback",
			zap.String("network", network),
			zap.Error(err))
		return FallbackSnapshot()
	}

	snapshot := types.GasSnapshot{
		MaxFeePerGas:         fees.MaxFeePerGas,
		MaxPriorityFeePerGas: fees.MaxPriorityFeePerGas,
		Block:                fees.Block,
	}
	if snapshot.MaxFeePerGas == nil {
		snapshot.MaxFeePerGas = new(big.Int).Set(fallbackMaxFee)
	}
	if snapshot.MaxPriorityFeePerGas == nil {
		snapshot.MaxPriorityFeePerGas = new(big.Int).Set(fallbackPriorityFee)
	}

	c.mu.Lock()
	c.snapshots[network] = cachedSnapshot{snapshot: snapshot, storedAt: now}
	c.mu.Unlock()

	c.metrics.ObserveGasPrice(network, WeiToGwei(snapshot.MaxFeePerGas).InexactFloat64())
	return snapshot
}

// WeiToGwei converts a wei amount to gwei
func WeiToGwei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -9)
}

// WeiToETH converts a wei amount to ETH
func WeiToETH(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}
