// Package metrics records pipeline measurements on a private prometheus registry written as a
// node exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "salesforecast"

// Metrics holds every collector of a pipeline run
type Metrics struct {
	registry *prometheus.Registry

	FitDuration *prometheus.HistogramVec
	FitFailures *prometheus.CounterVec
	RMSE        *prometheus.GaugeVec
	FilledDays  *prometheus.GaugeVec
	CacheHits   prometheus.Gauge
	CacheMisses prometheus.Gauge
	LastRun     prometheus.Gauge
}

// New creates and registers all metrics on a new registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fit_duration_seconds",
				Help:      "Time spent fitting and forecasting a model",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"model"},
		),
		FitFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fit_failures_total",
				Help:      "Number of models that could not be fit",
			},
			[]string{"model"},
		),
		RMSE: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "forecast_rmse",
				Help:      "Root mean squared error of the forecast over the test period",
			},
			[]string{"series", "model"},
		),
		FilledDays: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "filled_days",
				Help:      "Number of zero filled days of a series",
			},
			[]string{"series"},
		),
		CacheHits: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slice_cache_hits",
			Help:      "Number of slice selections served from cache",
		}),
		CacheMisses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slice_cache_misses",
			Help:      "Number of slice selections computed from the dataset",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the pipeline finished",
		}),
	}
}

// ObserveFit records the duration of a fit and counts it as failed when err is set
func (m *Metrics) ObserveFit(model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FitDuration.WithLabelValues(model).Observe(d.Seconds())
	if err != nil {
		m.FitFailures.WithLabelValues(model).Inc()
	}
}

func (m *Metrics) SetRMSE(series, model string, rmse float64) {
	if m == nil {
		return
	}
	m.RMSE.WithLabelValues(series, model).Set(rmse)
}

func (m *Metrics) SetFilledDays(series string, n uint64) {
	if m == nil {
		return
	}
	m.FilledDays.WithLabelValues(series).Set(float64(n))
}

func (m *Metrics) SetCacheStats(hits, misses uint64) {
	if m == nil {
		return
	}
	m.CacheHits.Set(float64(hits))
	m.CacheMisses.Set(float64(misses))
}

// Finish stamps the completion time of the run
func (m *Metrics) Finish(t time.Time) {
	if m == nil {
		return
	}
	m.LastRun.Set(float64(t.Unix()))
}

// Gatherer exposes the registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes every metric in the text exposition format to path
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create metrics directory, %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("unable to write metrics textfile, %w", err)
	}
	return nil
}
