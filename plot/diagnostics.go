package plot

import (
	"strconv"
	"time"

	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DecompositionLine plots the observed series with its trend, seasonal and remainder
// components
func DecompositionLine(title string, t []time.Time, y []float64, res *stats.STLResult) *charts.Line {
	return LineTSeries(
		title,
		[]string{"Observed", "Trend", "Seasonal", "Remainder"},
		t,
		[][]float64{y, res.Trend, res.Seasonal, res.Remainder},
	)
}

// ACFBar plots correlations by lag with the confidence bounds as mark lines. A nil result,
// e.g. of a constant series, gives an empty chart.
func ACFBar(title string, res *stats.ACFResult) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lag"}),
	)
	if res == nil {
		return bar
	}

	lags := make([]string, len(res.Lags))
	data := make([]opts.BarData, len(res.Values))
	for i, lag := range res.Lags {
		lags[i] = strconv.Itoa(lag)
	}
	for i, v := range res.Values {
		data[i] = opts.BarData{Value: v}
	}

	bar.SetXAxis(lags).AddSeries("Correlation", data,
		charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: "upper", YAxis: res.ConfBounds},
			opts.MarkLineNameYAxisItem{Name: "lower", YAxis: -res.ConfBounds},
		),
	)
	return bar
}
