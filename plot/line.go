// Package plot builds chart descriptions of the series, diagnostics and forecasts. Every
// function is pure: inputs are never modified and nothing is rendered until Render.
package plot

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecast/aggregate"
	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missing is the echarts placeholder of an absent value
const missing = "-"

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values
// leave a gap in their line.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	line = line.SetXAxis(dates(t))
	for i, series := range seriesName {
		if i >= len(y) {
			break
		}
		line = line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// SalesLine plots the daily sales and transactions of a slice
func SalesLine(s *aggregate.Slice) *charts.Line {
	return LineTSeries(
		fmt.Sprintf("Store %d %s", s.Key.Store, s.Key.Family),
		[]string{"Sales", "Transactions"},
		s.T,
		[][]float64{s.Sales, s.Transactions},
	)
}

// DailyTotalsLine plots the sales summed over every store
func DailyTotalsLine(td *timedataset.TimeDataset) *charts.Line {
	return LineTSeries("Daily Sales", []string{"Sales"}, td.T, [][]float64{td.Y})
}

// ForecastComparison plots the actual observations against the forecast of every model
// along with the prediction interval of the best model. Forecast dates must be a subset of
// the actual dates.
func ForecastComparison(actual *timedataset.TimeDataset, results []*forecast.Result, best string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Forecast Comparison",
			},
		),
	)

	idx := make(map[time.Time]int, len(actual.T))
	for i, t := range actual.T {
		idx[t] = i
	}
	project := func(t []time.Time, vals []float64) []float64 {
		res := forecast.NaNs(len(actual.T))
		for i, ti := range t {
			if j, exists := idx[ti]; exists {
				res[j] = vals[i]
			}
		}
		return res
	}

	line.SetXAxis(dates(actual.T)).
		AddSeries("Actual", lineData(actual.Y))
	for _, res := range results {
		if res == nil {
			continue
		}
		line.AddSeries(res.Model, lineData(project(res.T, res.Forecast)))
		if res.Model != best {
			continue
		}
		level := fmt.Sprintf("%.0f%%", 100*res.Level)
		line.AddSeries(res.Model+" lower "+level, lineData(project(res.T, res.Lower)),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
		line.AddSeries(res.Model+" upper "+level, lineData(project(res.T, res.Upper)),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	}
	return line
}

// Render writes every chart to a single html page
func Render(w io.Writer, c ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(c...)
	return page.Render(w)
}

func dates(t []time.Time) []string {
	res := make([]string, len(t))
	for i, ti := range t {
		res[i] = ti.Format(time.DateOnly)
	}
	return res
}

func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data = append(data, opts.LineData{Value: missing})
			continue
		}
		data = append(data, opts.LineData{Value: v})
	}
	return data
}
