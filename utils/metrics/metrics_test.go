package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsInitialization(t *testing.T) {
	Initialize(&MetricsConfig{Namespace: "test", LogMetrics: true}, zap.NewNop())
	assert.NotNil(t, Registry())
	assert.Equal(t, prometheus.Registerer(Registry()), prometheus.DefaultRegisterer)
}

func TestScannerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScannerMetrics(reg, "test")

	m.ObserveScan("arbitrum", "defi", "ok", 1500*time.Millisecond, 15)
	m.ObserveOpportunities("arbitrum", "defi", 2, 1.3)
	m.ObserveQuote("ok")
	m.ObserveQuote("no_liquidity")
	m.ObservePoolCache("hit")
	m.ObserveGasCache("miss")
	m.ObserveGasPrice("arbitrum", 0.1)
	m.ObservePrune("impact")
	m.ObserveFeed(nil)
	m.ObserveFeed(errors.New("down"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Scans.WithLabelValues("arbitrum", "defi", "ok")))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.PathsScanned))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Opportunities.WithLabelValues("arbitrum", "defi")))
	assert.Equal(t, 1.3, testutil.ToFloat64(m.BestNetProfit.WithLabelValues("arbitrum", "defi")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Quotes.WithLabelValues("no_liquidity")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PoolCache.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GasCache.WithLabelValues("miss")))
	assert.Equal(t, 0.1, testutil.ToFloat64(m.GasPriceGwei.WithLabelValues("arbitrum")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PrunedCombos.WithLabelValues("impact")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FeedPublished))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FeedErrors))

	families, err := reg.Gather()
	require.NoError(t, err)
	var duration *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "test_scan_duration_seconds" {
			duration = f
		}
	}
	require.NotNil(t, duration)
	assert.Equal(t, dto.MetricType_HISTOGRAM, duration.GetType())
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilScannerMetrics(t *testing.T) {
	var m *ScannerMetrics
	assert.NotPanics(t, func() {
		m.ObserveScan("arbitrum", "defi", "ok", time.Second, 1)
		m.ObserveOpportunities("arbitrum", "defi", 1, 1)
		m.ObserveQuote("ok")
		m.ObservePoolCache("hit")
		m.ObserveGasCache("hit")
		m.ObserveGasPrice("arbitrum", 1)
		m.ObservePrune("pool")
		m.ObserveFeed(nil)
	})
}
