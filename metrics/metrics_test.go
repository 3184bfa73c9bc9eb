package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.ObserveFit("ets", 20*time.Millisecond, nil)
	m.ObserveFit("arima", 40*time.Millisecond, errors.New("did not converge"))
	m.SetRMSE("1/GROCERY I", "ets", 12.5)
	m.SetFilledDays("1/GROCERY I", 4)
	m.SetCacheStats(3, 1)
	m.Finish(time.Unix(1500000000, 0))

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[mf.GetName()] += metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				values[mf.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	testData := map[string]float64{
		"salesforecast_fit_duration_seconds":       2,
		"salesforecast_fit_failures_total":         1,
		"salesforecast_forecast_rmse":              12.5,
		"salesforecast_filled_days":                4,
		"salesforecast_slice_cache_hits":           3,
		"salesforecast_slice_cache_misses":         1,
		"salesforecast_last_run_timestamp_seconds": 1500000000,
	}
	for name, expected := range testData {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, expected, values[name], 1e-9)
		})
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFit("ets", time.Second, nil)
		m.SetRMSE("a", "b", 1)
		m.SetFilledDays("a", 1)
		m.SetCacheStats(1, 1)
		m.Finish(time.Now())
	})
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.SetFilledDays("1/GROCERY I", 4)

	path := filepath.Join(t.TempDir(), "out", "salesforecast.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `salesforecast_filled_days{series="1/GROCERY I"} 4`)
}
