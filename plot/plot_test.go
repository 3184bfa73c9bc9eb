package plot

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecast/aggregate"
	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2017, 7, 3, 0, 0, 0, 0, time.UTC)

func testSlice(n int) *aggregate.Slice {
	t := timedataset.GenerateDailyT(start, n)
	sales := timedataset.GeneratePeriodicY(n, []float64{5, 6, 7, 8, 9, 12, 3})
	transactions := make([]float64, n)
	for i := range transactions {
		transactions[i] = 10 * sales[i]
	}
	return &aggregate.Slice{
		Key:          dataset.SeriesKey{Store: 1, Family: "GROCERY I"},
		T:            t,
		Sales:        sales,
		Transactions: transactions,
		OnPromotion:  make([]float64, n),
	}
}

func TestLineTSeries(t *testing.T) {
	times := timedataset.GenerateDailyT(start, 3)
	y := [][]float64{{1, math.NaN(), 3}, {4, 5, 6}}
	line := LineTSeries("title", []string{"a", "b"}, times, y)

	require.Len(t, line.MultiSeries, 2)
	assert.Equal(t, "a", line.MultiSeries[0].Name)
	assert.Equal(t, []opts.LineData{{Value: 1.0}, {Value: missing}, {Value: 3.0}}, line.MultiSeries[0].Data)
	assert.Equal(t, "title", line.Title.Title)

	assert.True(t, math.IsNaN(y[0][1]))
}

func TestSlicePlots(t *testing.T) {
	s := testSlice(28)

	line := SalesLine(s)
	require.Len(t, line.MultiSeries, 2)
	assert.Equal(t, "Store 1 GROCERY I", line.Title.Title)

	scatter := TransactionScatter(s)
	require.Len(t, scatter.MultiSeries, 1)
	data, ok := scatter.MultiSeries[0].Data.([]opts.ScatterData)
	require.True(t, ok)
	assert.Len(t, data, 28)

	box := WeekdayBox(s)
	require.Len(t, box.MultiSeries, 1)
	boxData, ok := box.MultiSeries[0].Data.([]opts.BoxPlotData)
	require.True(t, ok)
	require.Len(t, boxData, 7)
	assert.Equal(t, "Monday", boxData[0].Name)
	// every monday sells 5
	assert.Equal(t, []float64{5, 5, 5, 5, 5}, boxData[0].Value)
}

func TestFiveNumber(t *testing.T) {
	testData := map[string]struct {
		vals     []float64
		expected []float64
	}{
		"single":  {vals: []float64{2}, expected: []float64{2, 2, 2, 2, 2}},
		"ordered": {vals: []float64{5, 1, 3, math.NaN(), 4, 2}, expected: []float64{1, 1.75, 3, 4.25, 5}},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := FiveNumber(td.vals)
			require.Len(t, res, 5)
			assert.Equal(t, td.expected[0], res[0])
			assert.Equal(t, td.expected[4], res[4])
			assert.LessOrEqual(t, res[1], res[2])
			assert.LessOrEqual(t, res[2], res[3])
		})
	}

	for _, v := range FiveNumber(nil) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestDiagnostics(t *testing.T) {
	s := testSlice(56)
	stl, err := stats.STL(s.Sales, 7, nil)
	require.NoError(t, err)
	line := DecompositionLine("stl", s.T, s.Sales, stl)
	assert.Len(t, line.MultiSeries, 4)

	acf := stats.ACFWithConfidence(s.Sales, 14)
	bar := ACFBar("acf", acf)
	require.Len(t, bar.MultiSeries, 1)
	data, ok := bar.MultiSeries[0].Data.([]opts.BarData)
	require.True(t, ok)
	assert.Len(t, data, 15)
}

func TestForecastComparison(t *testing.T) {
	actual := &timedataset.TimeDataset{
		T: timedataset.GenerateDailyT(start, 5),
		Y: []float64{1, 2, 3, 4, 5},
	}
	a, err := forecast.NewResult("a", 0.95, actual.T[3:], []float64{4, 5}, []float64{1, 1})
	require.NoError(t, err)
	b, err := forecast.NewResult("b", 0.95, actual.T[3:], []float64{3, 3}, []float64{1, 1})
	require.NoError(t, err)

	line := ForecastComparison(actual, []*forecast.Result{a, b, nil}, "a")
	require.Len(t, line.MultiSeries, 5)
	assert.Equal(t, "Actual", line.MultiSeries[0].Name)
	assert.Equal(t, "a", line.MultiSeries[1].Name)
	assert.Equal(t, "a lower 95%", line.MultiSeries[2].Name)
	assert.Equal(t, "b", line.MultiSeries[4].Name)

	data, ok := line.MultiSeries[4].Data.([]opts.LineData)
	require.True(t, ok)
	assert.Equal(t, missing, data[0].Value)
	assert.Equal(t, 3.0, data[3].Value)
}

func TestRender(t *testing.T) {
	s := testSlice(14)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, SalesLine(s), WeekdayBox(s)))
	assert.Contains(t, buf.String(), "echarts")
}
