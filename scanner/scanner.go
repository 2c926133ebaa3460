package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/michaelpento.lv/triscan/config"
	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/gas"
	"github.com/michaelpento.lv/triscan/strategies/arbitrage"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownNetwork  = errors.New("unknown network")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Version is reported by Health
const Version = "2.0.0"

// Options tune how a scan walks its paths
type Options struct {
	// Workers bounds the paths evaluated concurrently; 1 keeps scans sequential
	Workers int
	// PathDelay is slept after each path to pace public RPC endpoints
	PathDelay time.Duration
	TopN      int
}

// ScanRequest selects what one scan searches
type ScanRequest struct {
	Network      string
	Amount       float64
	Strategy     string
	MinNetProfit float64
	// MaxPaths lowers the number of scanned paths below the strategy's limit; 0 keeps it
	MaxPaths int
}

// ScanResult is the outcome of a scan. Opportunities holds at most TopN
// entries; Summary covers every opportunity found.
type ScanResult struct {
	Network       string
	Strategy      string
	Amount        float64
	MinNetProfit  float64
	PathsScanned  int
	Elapsed       time.Duration
	Found         int
	Opportunities []*types.Opportunity
	Summary       types.Summary
	Gas           types.GasSnapshot
	Timestamp     time.Time
}

// Scanner runs strategy scans and single-path analyses over a network catalog
type Scanner struct {
	opts      Options
	catalog   *config.Catalog
	providers dex.Providers
	detector  *arbitrage.Detector
	quoter    *dex.HopQuoter
	estimator *gas.Estimator
	prices    *gas.PriceCache
	clock     utils.Clock
	metrics   *metrics.ScannerMetrics
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(
	opts Options,
	catalog *config.Catalog,
	providers dex.Providers,
	detector *arbitrage.Detector,
	quoter *dex.HopQuoter,
	estimator *gas.Estimator,
	prices *gas.PriceCache,
	clock utils.Clock,
	m *metrics.ScannerMetrics,
	logger *zap.Logger,
) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.TopN <= 0 {
		opts.TopN = arbitrage.DefaultTopN
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Scanner{
		opts:      opts,
		catalog:   catalog,
		providers: providers,
		detector:  detector,
		quoter:    quoter,
		estimator: estimator,
		prices:    prices,
		clock:     clock,
		metrics:   m,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Catalog returns the networks the scanner serves
func (s *Scanner) Catalog() *config.Catalog {
	return s.catalog
}

func (s *Scanner) resolve(networkID, strategyName string) (*types.Network, *types.Strategy, error) {
	network, ok := s.catalog.Network(networkID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: Network %s not supported", ErrUnknownNetwork, networkID)
	}
	strategy, ok := config.Strategy(strategyName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: Invalid strategy. Choose from: %s",
			ErrUnknownStrategy, strings.Join(config.StrategyNames(), ", "))
	}
	return network, strategy, nil
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// Paths returns the candidate paths a scan of req would walk, in order
func (s *Scanner) Paths(req ScanRequest) ([]types.Path, error) {
	network, strategy, err := s.resolve(req.Network, req.Strategy)
	if err != nil {
		return nil, err
	}
	if req.MaxPaths < 0 {
		return nil, fmt.Errorf("%w: maxPaths must not be negative", ErrInvalidRequest)
	}
	paths := arbitrage.GeneratePaths(network, strategy)
	if req.MaxPaths > 0 && req.MaxPaths < len(paths) {
		paths = paths[:req.MaxPaths]
	}
	return paths, nil
}

// Scan evaluates the strategy's paths on the network and returns the ranked
// opportunities whose net profit percentage reaches req.MinNetProfit.
// Requests naming an unknown network or strategy are rejected before any
// provider call.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if !validAmount(req.Amount) {
		return nil, fmt.Errorf("%w: amount must be a positive number", ErrInvalidRequest)
	}
	paths, err := s.Paths(req)
	if err != nil {
		return nil, err
	}
	network, _ := s.catalog.Network(req.Network)
	strategy, _ := config.Strategy(req.Strategy)

	return s.scanPaths(ctx, network, strategy, paths, req)
}

func (s *Scanner) scanPaths(ctx context.Context, network *types.Network, strategy *types.Strategy, paths []types.Path, req ScanRequest) (*ScanResult, error) {
	start := s.clock.Now()
	s.logger.Info("Starting scan",
		zap.String("network", network.ID),
		zap.String("strategy", strategy.Name),
		zap.Float64("amount", req.Amount),
		zap.Int("paths", len(paths)))

	results := make([]*types.Opportunity, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.logger.Debug("Scanning path",
				zap.Int("index", i+1),
				zap.Int("total", len(paths)),
				zap.String("path", path.String()))

			opp := s.detector.Search(gctx, network, path, req.Amount, strategy)
			if opp != nil && opp.NetProfitPercent >= req.MinNetProfit {
				results[i] = opp
				s.logger.Info("Opportunity found",
					zap.String("network", network.ID),
					zap.String("path", opp.PathLabel),
					zap.Float64("net_profit_percent", opp.NetProfitPercent),
					zap.Int("confidence", opp.Confidence))
			}
			return s.sleep(gctx, s.opts.PathDelay)
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.ObserveScan(network.ID, strategy.Name, "error", s.clock.Now().Sub(start), len(paths))
		return nil, fmt.Errorf("scan aborted: %w", err)
	}

	var found []*types.Opportunity
	for _, opp := range results {
		if opp != nil {
			found = append(found, opp)
		}
	}
	ranked, summary := arbitrage.Rank(found, s.opts.TopN)
	elapsed := s.clock.Now().Sub(start)

	s.metrics.ObserveScan(network.ID, strategy.Name, "ok", elapsed, len(paths))
	s.metrics.ObserveOpportunities(network.ID, strategy.Name, len(found), summary.BestNetProfit)
	s.logger.Info("Scan finished",
		zap.String("network", network.ID),
		zap.String("strategy", strategy.Name),
		zap.Int("paths_scanned", len(paths)),
		zap.Int("opportunities", len(found)),
		zap.Duration("elapsed", elapsed))

	return &ScanResult{
		Network:       network.ID,
		Strategy:      strategy.Name,
		Amount:        req.Amount,
		MinNetProfit:  req.MinNetProfit,
		PathsScanned:  len(paths),
		Elapsed:       elapsed,
		Found:         len(found),
		Opportunities: ranked,
		Summary:       summary,
		Gas:           s.prices.Get(ctx, network.ID),
		Timestamp:     s.clock.Now().UTC(),
	}, nil
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
