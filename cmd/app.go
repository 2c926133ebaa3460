package cmd

import (
	"context"
	"fmt"

	"github.com/michaelpento.lv/triscan/config"
	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/dex/uniswap"
	"github.com/michaelpento.lv/triscan/feed"
	"github.com/michaelpento.lv/triscan/gas"
	"github.com/michaelpento.lv/triscan/scanner"
	"github.com/michaelpento.lv/triscan/strategies/arbitrage"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"go.uber.org/zap"
)

// app holds the wired components shared by the subcommands
type app struct {
	cfg       *config.Config
	catalog   *config.Catalog
	metrics   *metrics.ScannerMetrics
	scanner   *scanner.Scanner
	publisher *feed.Publisher
	closers   []func()
	logger    *zap.Logger
}

// logOutput is where command logs go; stdout is reserved for command output
const logOutput = "stderr"

// dialNetwork connects the provider for one network and returns its closer
var dialNetwork = func(ctx context.Context, network *types.Network, log *zap.Logger) (dex.Provider, func(), error) {
	provider, client, err := uniswap.Dial(ctx, network, log)
	if err != nil {
		return nil, nil, err
	}
	return provider, client.Close, nil
}

func loadSettings() (*config.Config, *config.Catalog, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if catalogFile != "" {
		cfg.CatalogFile = catalogFile
	}
	cfg.Debug = cfg.Debug || debug
	cfg.Logger = utils.InitLogger(cfg.Debug, logOutput)

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, nil, err
	}
	catalog.ApplyRPCEndpoints(cfg.RPCEndpoints)
	return cfg, catalog, nil
}

// newApp dials every network in the catalog and builds the scanner
func newApp(ctx context.Context) (*app, error) {
	cfg, catalog, err := loadSettings()
	if err != nil {
		return nil, err
	}
	log := cfg.Logger

	metrics.Initialize(&metrics.MetricsConfig{Namespace: cfg.Metrics.Namespace, LogMetrics: cfg.Debug}, log)
	m := metrics.NewScannerMetrics(metrics.Registry(), cfg.Metrics.Namespace)

	a := &app{cfg: cfg, catalog: catalog, metrics: m, logger: log}
	providers := make(dex.Providers)
	for _, network := range catalog.Networks() {
		provider, closeFn, err := dialNetwork(ctx, network, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		providers[network.ID] = dex.NewLimitedProvider(provider,
			cfg.RPCRateLimit.RequestsPerSecond,
			cfg.RPCRateLimit.BurstSize,
			cfg.RPCRateLimit.WaitTimeout)
		log.Info("Connected to network",
			zap.String("network", network.ID),
			zap.Uint64("chain_id", network.ChainID),
			zap.Int("tokens", len(network.Tokens)))
	}

	clock := utils.SystemClock{}
	pools, err := dex.NewPoolCache(providers, cfg.Scanner.PoolCacheSize, cfg.Scanner.PoolCacheTTL, clock, m, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	quoter := dex.NewHopQuoter(providers, dex.RetryConfig{
		MaxRetries: cfg.Scanner.MaxRetries,
		Delay:      cfg.Scanner.RetryDelay,
	}, m, log)
	prices := gas.NewPriceCache(providers, cfg.Scanner.GasCacheTTL, clock, m, log)
	estimator := gas.NewEstimator(prices, quoter, log)
	detector := arbitrage.NewDetector(pools, quoter, estimator, cfg.Scanner.ImpactCeiling, clock, m, log)

	a.scanner = scanner.New(scanner.Options{
		Workers:   cfg.Scanner.Workers,
		PathDelay: cfg.Scanner.PathDelay,
		TopN:      cfg.Scanner.TopN,
	}, catalog, providers, detector, quoter, estimator, prices, clock, m, log)

	if cfg.Redis.Enabled {
		a.publisher = feed.NewPublisher(cfg.Redis, m, log)
		if err := a.publisher.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}
	return a, nil
}

// sinks returns the configured opportunity feeds
func (a *app) sinks() []scanner.Sink {
	if a.publisher == nil {
		return nil
	}
	return []scanner.Sink{a.publisher}
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		closeFn()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}
