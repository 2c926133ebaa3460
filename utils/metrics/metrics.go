package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	registry = newRegistry()
	logger   *zap.Logger
)

// newRegistry carries the Go runtime and process collectors next to the scanner metrics
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

type MetricsConfig struct {
	Namespace  string
	LogMetrics bool
}

// Initialize makes the package registry the default registerer and gatherer
func Initialize(cfg *MetricsConfig, log *zap.Logger) {
	logger = log
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	if cfg != nil && cfg.LogMetrics {
		logger.Info("Metrics registry initialized", zap.String("namespace", cfg.Namespace))
	}
}

// Registry returns the registry served on /metrics
func Registry() *prometheus.Registry {
	return registry
}

// ScannerMetrics instruments scans, provider calls and the caches.
// All methods are safe on a nil receiver so components can run uninstrumented.
type ScannerMetrics struct {
	Scans         *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	PathsScanned  prometheus.Counter
	Opportunities *prometheus.CounterVec
	BestNetProfit *prometheus.GaugeVec
	Quotes        *prometheus.CounterVec
	PoolCache     *prometheus.CounterVec
	GasCache      *prometheus.CounterVec
	GasPriceGwei  *prometheus.GaugeVec
	PrunedCombos  *prometheus.CounterVec
	FeedPublished prometheus.Counter
	FeedErrors    prometheus.Counter
}

// NewScannerMetrics registers the scanner metrics on reg
func NewScannerMetrics(reg prometheus.Registerer, namespace string) *ScannerMetrics {
	factory := promauto.With(reg)
	return &ScannerMetrics{
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of scans by network, strategy and outcome",
		}, []string{"network", "strategy", "outcome"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time taken to complete a scan",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		PathsScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_scanned_total",
			Help:      "Total number of candidate paths evaluated",
		}),
		Opportunities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Total number of opportunities passing the profit threshold",
		}, []string{"network", "strategy"}),
		BestNetProfit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_net_profit_percent",
			Help:      "Best net profit percentage of the latest scan",
		}, []string{"network", "strategy"}),
		Quotes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Total number of hop quotes by result status",
		}, []string{"status"}),
		PoolCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_cache_lookups_total",
			Help:      "Pool validation cache lookups by result",
		}, []string{"result"}),
		GasCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_cache_lookups_total",
			Help:      "Gas price cache lookups by result",
		}, []string{"result"}),
		GasPriceGwei: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gas_max_fee_gwei",
			Help:      "Latest max fee per gas in gwei",
		}, []string{"network"}),
		PrunedCombos: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_hops_total",
			Help:      "Hops pruned during search by reason",
		}, []string{"reason"}),
		FeedPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_published_total",
			Help:      "Opportunities published to the feed",
		}),
		FeedErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Feed publish failures",
		}),
	}
}

func (m *ScannerMetrics) ObserveScan(network, strategy, outcome string, elapsed time.Duration, paths int) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(network, strategy, outcome).Inc()
	m.ScanDuration.Observe(elapsed.Seconds())
	m.PathsScanned.Add(float64(paths))
}

func (m *ScannerMetrics) ObserveOpportunities(network, strategy string, found int, bestNet float64) {
	if m == nil {
		return
	}
	m.Opportunities.WithLabelValues(network, strategy).Add(float64(found))
	m.BestNetProfit.WithLabelValues(network, strategy).Set(bestNet)
}

func (m *ScannerMetrics) ObserveQuote(status string) {
	if m == nil {
		return
	}
	m.Quotes.WithLabelValues(status).Inc()
}

func (m *ScannerMetrics) ObservePoolCache(result string) {
	if m == nil {
		return
	}
	m.PoolCache.WithLabelValues(result).Inc()
}

func (m *ScannerMetrics) ObserveGasCache(result string) {
	if m == nil {
		return
	}
	m.GasCache.WithLabelValues(result).Inc()
}

func (m *ScannerMetrics) ObserveGasPrice(network string, gwei float64) {
	if m == nil {
		return
	}
	m.GasPriceGwei.WithLabelValues(network).Set(gwei)
}

func (m *ScannerMetrics) ObservePrune(reason string) {
	if m == nil {
		return
	}
	m.PrunedCombos.WithLabelValues(reason).Inc()
}

func (m *ScannerMetrics) ObserveFeed(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FeedErrors.Inc()
		return
	}
	m.FeedPublished.Inc()
}
