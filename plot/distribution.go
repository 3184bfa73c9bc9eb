package plot

import (
	"fmt"
	"math"
	"sort"

	"github.com/aouyang1/go-salesforecast/aggregate"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
)

// TransactionScatter plots the daily sales of a slice against the store transactions
func TransactionScatter(s *aggregate.Slice) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: fmt.Sprintf("Store %d %s Sales vs Transactions", s.Key.Store, s.Key.Family),
			},
		),
		charts.WithXAxisOpts(opts.XAxis{Name: "Transactions", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Sales", Type: "value"}),
	)

	data := make([]opts.ScatterData, 0, s.Len())
	for i := range s.T {
		if s.IsFilled(i) {
			continue
		}
		data = append(data, opts.ScatterData{
			Value:      []float64{s.Transactions[i], s.Sales[i]},
			SymbolSize: 5,
		})
	}
	scatter.AddSeries("Sales", data)
	return scatter
}

// BoxPlot summarizes the distribution of each group by its minimum, quartiles and maximum.
// Groups without a finite value are left out.
func BoxPlot(title string, groups []aggregate.Group) *charts.BoxPlot {
	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	names := make([]string, 0, len(groups))
	data := make([]opts.BoxPlotData, 0, len(groups))
	for _, g := range groups {
		summary := FiveNumber(g.Values)
		if math.IsNaN(summary[0]) {
			continue
		}
		names = append(names, g.Name)
		data = append(data, opts.BoxPlotData{Name: g.Name, Value: summary})
	}
	box.SetXAxis(names).AddSeries("Sales", data)
	return box
}

// WeekdayBox plots the day of week distribution of a slice
func WeekdayBox(s *aggregate.Slice) *charts.BoxPlot {
	return BoxPlot(
		fmt.Sprintf("Store %d %s Sales by Weekday", s.Key.Store, s.Key.Family),
		aggregate.WeekdayProfile(s),
	)
}

// FiveNumber returns the minimum, lower quartile, median, upper quartile and maximum of the
// finite values. Every value is NaN for an empty input.
func FiveNumber(vals []float64) []float64 {
	sorted := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		nan := math.NaN()
		return []float64{nan, nan, nan, nan, nan}
	}
	sort.Float64s(sorted)
	return []float64{
		sorted[0],
		stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		sorted[len(sorted)-1],
	}
}
