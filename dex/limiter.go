package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/triscan/types"
	"golang.org/x/time/rate"
)

// LimitedProvider gates every call to the wrapped provider through a token
// bucket so concurrent scans share one external request budget.
type LimitedProvider struct {
	next        Provider
	limiter     *rate.Limiter
	waitTimeout time.Duration
}

// NewLimitedProvider wraps next with a limiter of rps requests per second.
// A non-positive rps disables limiting.
func NewLimitedProvider(next Provider, rps float64, burst int, waitTimeout time.Duration) *LimitedProvider {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimitedProvider{
		next:        next,
		limiter:     rate.NewLimiter(limit, burst),
		waitTimeout: waitTimeout,
	}
}

func (p *LimitedProvider) wait(ctx context.Context) error {
	if p.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.waitTimeout)
		defer cancel()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	return nil
}

func (p *LimitedProvider) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee types.FeeTier, amountIn *big.Int) (*big.Int, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.QuoteExactInputSingle(ctx, tokenIn, tokenOut, fee, amountIn)
}

func (p *LimitedProvider) PoolFor(ctx context.Context, tokenA, tokenB common.Address, fee types.FeeTier) (*Pool, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.PoolFor(ctx, tokenA, tokenB, fee)
}

func (p *LimitedProvider) CurrentFees(ctx context.Context) (*FeeData, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.CurrentFees(ctx)
}

func (p *LimitedProvider) BlockNumber(ctx context.Context) (uint64, error) {
	if err := p.wait(ctx); err != nil {
		return 0, err
	}
	return p.next.BlockNumber(ctx)
}
