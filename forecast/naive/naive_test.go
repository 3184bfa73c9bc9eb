package naive

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)

func dataset(t *testing.T, y []float64) *timedataset.TimeDataset {
	t.Helper()
	ds, err := timedataset.NewUnivariateDataset(timedataset.GenerateDailyT(start, len(y)), y)
	require.NoError(t, err)
	return ds
}

func TestSeasonalNaiveReproducesLastWeek(t *testing.T) {
	week := []float64{10, 12, 11, 13, 18, 25, 5}
	train := dataset(t, timedataset.GeneratePeriodicY(8*7, week))

	f, err := New(NewDefaultOptions(MethodSNaive))
	require.NoError(t, err)
	model, err := f.Fit(train)
	require.NoError(t, err)

	res, err := model.Forecast(14)
	require.NoError(t, err)
	require.Equal(t, 14, res.Len())
	assert.Equal(t, append(append([]float64{}, week...), week...), res.Forecast)
	assert.Equal(t, train.T[train.Len()-1].AddDate(0, 0, 1), res.T[0])

	// a perfectly periodic series has no in-sample error
	assert.Equal(t, res.Forecast, res.Lower)
	assert.Equal(t, res.Forecast, res.Upper)
	assert.True(t, math.IsNaN(model.Fitted()[6]))
	assert.Equal(t, 10.0, model.Fitted()[7])
}

func TestMethods(t *testing.T) {
	y := []float64{1, 3, 2, 4, 3, 5}
	testData := map[string]struct {
		method   Method
		expected []float64
	}{
		"mean":   {method: MethodMean, expected: []float64{3, 3, 3}},
		"naive":  {method: MethodNaive, expected: []float64{5, 5, 5}},
		"drift":  {method: MethodDrift, expected: []float64{5.8, 6.6, 7.4}},
		"snaive": {method: MethodSNaive, expected: []float64{4, 3, 5}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := NewDefaultOptions(td.method)
			opt.Period = 3
			f, err := New(opt)
			require.NoError(t, err)
			assert.Equal(t, name, f.Name())

			model, err := f.Fit(dataset(t, y))
			require.NoError(t, err)
			res, err := model.Forecast(3)
			require.NoError(t, err)
			assert.InDeltaSlice(t, td.expected, res.Forecast, 1e-9)

			for i := 0; i < res.Len(); i++ {
				assert.LessOrEqual(t, res.Lower[i], res.Forecast[i])
				assert.GreaterOrEqual(t, res.Upper[i], res.Forecast[i])
			}
			// random walk intervals widen with every step
			if td.method == MethodNaive || td.method == MethodDrift {
				assert.Greater(t, res.Upper[2]-res.Lower[2], res.Upper[0]-res.Lower[0])
			}
		})
	}
}

func TestNaiveStandardError(t *testing.T) {
	y := []float64{1, 3, 2, 4, 3, 5}
	f, err := New(NewDefaultOptions(MethodNaive))
	require.NoError(t, err)
	model, err := f.Fit(dataset(t, y))
	require.NoError(t, err)

	// residuals 2, -1, 2, -1, 2
	sigma := math.Sqrt(14.0 / 5.0)
	assert.InDelta(t, sigma, model.(*Model).Sigma(), 1e-12)

	res, err := model.Forecast(4)
	require.NoError(t, err)
	z, err := forecast.NormalQuantile(0.95)
	require.NoError(t, err)
	assert.InDelta(t, 5+z*sigma*2, res.Upper[3], 1e-9)
}

func TestFitErrors(t *testing.T) {
	testData := map[string]struct {
		opt *Options
		y   []float64
		err error
	}{
		"snaive needs a full cycle": {
			opt: NewDefaultOptions(MethodSNaive),
			y:   []float64{1, 2, 3},
			err: forecast.ErrInsufficientTrainingData,
		},
		"nan": {
			opt: NewDefaultOptions(MethodMean),
			y:   []float64{1, math.NaN(), 3},
			err: forecast.ErrNonFiniteTrainingData,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(td.opt)
			require.NoError(t, err)
			_, err = f.Fit(dataset(t, td.y))
			var fitErr *forecast.FitError
			require.ErrorAs(t, err, &fitErr)
			assert.ErrorIs(t, err, td.err)
		})
	}

	_, err := New(&Options{Method: "bogus", Level: 0.95})
	assert.ErrorIs(t, err, ErrUnknownMethod)
	_, err = New(&Options{Method: MethodNaive, Level: 0})
	assert.ErrorIs(t, err, forecast.ErrInvalidLevel)
}

func TestZeroSeries(t *testing.T) {
	f, err := New(NewDefaultOptions(MethodSNaive))
	require.NoError(t, err)
	model, err := f.Fit(dataset(t, make([]float64, 28)))
	require.NoError(t, err)
	res, err := model.Forecast(7)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 7), res.Forecast)
}
