package dex

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/triscan/types"
)

// ErrNoLiquidity is returned by a Quoter when the swap cannot be routed,
// e.g. the quoter reverted because the pool does not exist or is empty.
// It is a definitive answer and is never retried.
var ErrNoLiquidity = errors.New("no liquidity")

// Quoter simulates exact-input single-pool swaps. Amounts are in the
// smallest unit of each token.
type Quoter interface {
	QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee types.FeeTier, amountIn *big.Int) (*big.Int, error)
}

// Pool is a pool reported by a PoolOracle
type Pool struct {
	Address   common.Address
	Liquidity *big.Int
}

// PoolOracle resolves the pool for a pair and fee tier.
// A nil pool with a nil error means the pool does not exist.
type PoolOracle interface {
	PoolFor(ctx context.Context, tokenA, tokenB common.Address, fee types.FeeTier) (*Pool, error)
}

// FeeData is the raw answer of a GasOracle. Either fee may be nil when the
// chain does not report it.
type FeeData struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Block                uint64
}

// GasOracle reports current fee-per-gas data for a chain
type GasOracle interface {
	CurrentFees(ctx context.Context) (*FeeData, error)
}

// Provider bundles every on-chain capability the scanner consumes for one network
type Provider interface {
	Quoter
	PoolOracle
	GasOracle

	// BlockNumber returns the latest block height; used for health checks
	BlockNumber(ctx context.Context) (uint64, error)
}

// Providers maps a network id to its provider
type Providers map[string]Provider
