package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
	"go.uber.org/zap"
)

// ErrQuoteUnavailable is returned when a hop could not be quoted because the provider failed
var ErrQuoteUnavailable = errors.New("quote unavailable")

// DefaultAnalyzeFees is used when an analysis names no fee tiers
var DefaultAnalyzeFees = []types.FeeTier{types.Fee030, types.Fee030, types.Fee030}

type AnalyzeRequest struct {
	Network string
	Path    []string
	Amount  float64
	Fees    []types.FeeTier
}

// Step is one quoted hop of an analysis
type Step struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	AmountIn  float64       `json:"amountIn"`
	AmountOut float64       `json:"amountOut"`
	Fee       types.FeeTier `json:"fee"`
}

type AnalysisSummary struct {
	InputAmount        float64 `json:"inputAmount"`
	OutputAmount       float64 `json:"outputAmount"`
	GrossProfit        float64 `json:"grossProfit"`
	GrossProfitPercent float64 `json:"grossProfitPercent"`
	GasCostToken       float64 `json:"gasCostTokenA"`
	NetProfit          float64 `json:"netProfit"`
	NetProfitPercent   float64 `json:"netProfitPercent"`
	Profitable         bool    `json:"profitable"`
}

// Analysis is the unpruned evaluation of one path at fixed fee tiers
type Analysis struct {
	Network string          `json:"network"`
	Path    string          `json:"path"`
	Steps   []Step          `json:"steps"`
	Summary AnalysisSummary `json:"summary"`
}

// Analyze quotes a single path at the requested fee tiers without pool
// validation or impact pruning. A hop without liquidity fails the analysis
// with an error wrapping dex.ErrNoLiquidity.
func (s *Scanner) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	network, ok := s.catalog.Network(req.Network)
	if !ok {
		return nil, fmt.Errorf("%w: Network %s not supported", ErrUnknownNetwork, req.Network)
	}
	if len(req.Path) != 3 {
		return nil, fmt.Errorf("%w: Path must be array of 3 token symbols", ErrInvalidRequest)
	}
	path := types.Path{req.Path[0], req.Path[1], req.Path[2]}
	for _, symbol := range path {
		if _, ok := network.Token(symbol); !ok {
			return nil, fmt.Errorf("%w: Token %s not found on %s", ErrInvalidRequest, symbol, network.ID)
		}
	}
	if !path.Valid() {
		return nil, fmt.Errorf("%w: path tokens must be distinct", ErrInvalidRequest)
	}
	if !validAmount(req.Amount) {
		return nil, fmt.Errorf("%w: amount must be a positive number", ErrInvalidRequest)
	}

	fees := req.Fees
	if len(fees) == 0 {
		fees = DefaultAnalyzeFees
	}
	if len(fees) != 3 {
		return nil, fmt.Errorf("%w: fees must list 3 fee tiers", ErrInvalidRequest)
	}
	for _, fee := range fees {
		if !fee.Valid() {
			return nil, fmt.Errorf("%w: unsupported fee tier %d", ErrInvalidRequest, uint32(fee))
		}
	}

	steps := make([]Step, 0, 3)
	amount := req.Amount
	for i, h := range path.Hops() {
		res := s.quoter.Quote(ctx, network, h[0], h[1], fees[i], amount)
		switch {
		case res.Status == dex.QuoteUnavailable:
			return nil, fmt.Errorf("%w for %s → %s", ErrQuoteUnavailable, h[0], h[1])
		case !res.OK():
			return nil, fmt.Errorf("%w for %s → %s", dex.ErrNoLiquidity, h[0], h[1])
		}
		steps = append(steps, Step{From: h[0], To: h[1], AmountIn: amount, AmountOut: res.Amount, Fee: fees[i]})
		amount = res.Amount
	}

	gross := amount - req.Amount
	gasCost := s.estimator.ToToken(ctx, network, s.estimator.CostETH(ctx, network, fees), path[0])
	net := gross - gasCost

	s.logger.Debug("Analyzed path",
		zap.String("network", network.ID),
		zap.String("path", path.String()),
		zap.Float64("net_profit", net))

	return &Analysis{
		Network: network.ID,
		Path:    path.String(),
		Steps:   steps,
		Summary: AnalysisSummary{
			InputAmount:        req.Amount,
			OutputAmount:       amount,
			GrossProfit:        gross,
			GrossProfitPercent: gross / req.Amount * 100,
			GasCostToken:       gasCost,
			NetProfit:          net,
			NetProfitPercent:   net / req.Amount * 100,
			Profitable:         net > 0,
		},
	}, nil
}
