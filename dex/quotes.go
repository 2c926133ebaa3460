package dex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"go.uber.org/zap"
)

// QuoteStatus classifies the outcome of a hop quote
type QuoteStatus int

const (
	// QuoteOK carries a positive output amount
	QuoteOK QuoteStatus = iota
	// QuoteNoLiquidity means the provider answered but the hop cannot be routed
	// or yields nothing
	QuoteNoLiquidity
	// QuoteUnavailable means the provider could not be reached after retries,
	// or the request could not be formed
	QuoteUnavailable
)

func (s QuoteStatus) String() string {
	switch s {
	case QuoteOK:
		return "ok"
	case QuoteNoLiquidity:
		return "no_liquidity"
	case QuoteUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("QuoteStatus(%d)", int(s))
}

// QuoteResult is the fail-closed answer for one hop. Amount is in human
// units of the output token and is only meaningful when Status is QuoteOK.
type QuoteResult struct {
	Status QuoteStatus
	Amount float64
}

// OK reports whether the quote is usable
func (r QuoteResult) OK() bool {
	return r.Status == QuoteOK && r.Amount > 0
}

// RetryConfig bounds the retries at a provider call
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

// HopQuoter quotes hops by token symbol, converting units and retrying
// transport failures with linearly increasing backoff.
type HopQuoter struct {
	providers Providers
	retry     RetryConfig
	metrics   *metrics.ScannerMetrics
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewHopQuoter creates a hop quoter over the given providers
func NewHopQuoter(providers Providers, retry RetryConfig, m *metrics.ScannerMetrics, logger *zap.Logger) *HopQuoter {
	return &HopQuoter{
		providers: providers,
		retry:     retry,
		metrics:   m,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Quote returns the output amount for swapping amountIn of tokenIn into tokenOut
func (q *HopQuoter) Quote(ctx context.Context, network *types.Network, tokenIn, tokenOut string, fee types.FeeTier, amountIn float64) QuoteResult {
	res := q.quote(ctx, network, tokenIn, tokenOut, fee, amountIn)
	q.metrics.ObserveQuote(res.Status.String())
	return res
}

func (q *HopQuoter) quote(ctx context.Context, network *types.Network, tokenIn, tokenOut string, fee types.FeeTier, amountIn float64) QuoteResult {
	provider, ok := q.providers[network.ID]
	if !ok {
		return QuoteResult{Status: QuoteUnavailable}
	}
	in, okIn := network.Token(tokenIn)
	out, okOut := network.Token(tokenOut)
	if !okIn || !okOut {
		return QuoteResult{Status: QuoteUnavailable}
	}

	amountInUnits := ToUnits(amountIn, in.Decimals)
	if amountInUnits.Sign() <= 0 {
		return QuoteResult{Status: QuoteNoLiquidity}
	}

	var lastErr error
	for attempt := 0; attempt <= q.retry.MaxRetries; attempt++ {
		amountOut, err := provider.QuoteExactInputSingle(ctx, in.Address, out.Address, fee, amountInUnits)
		if err == nil {
			if amountOut == nil || amountOut.Sign() <= 0 {
				return QuoteResult{Status: QuoteNoLiquidity}
			}
			return QuoteResult{Status: QuoteOK, Amount: FromUnits(amountOut, out.Decimals)}
		}
		if errors.Is(err, ErrNoLiquidity) {
			return QuoteResult{Status: QuoteNoLiquidity}
		}
		lastErr = err
		if attempt == q.retry.MaxRetries {
			break
		}
		if err := q.sleep(ctx, q.retry.Delay*time.Duration(attempt+1)); err != nil {
			lastErr = err
			break
		}
	}

	q.logger.Debug("Quote unavailable",
		zap.String("network", network.ID),
		zap.String("token_in", tokenIn),
		zap.String("token_out", tokenOut),
		zap.Uint32("fee", uint32(fee)),
		zap.Error(lastErr))
	return QuoteResult{Status: QuoteUnavailable}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
