package arima

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataset(t *testing.T, y []float64) *timedataset.TimeDataset {
	t.Helper()
	td, err := timedataset.NewUnivariateDataset(
		timedataset.GenerateDailyT(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), len(y)), y,
	)
	require.NoError(t, err)
	return td
}

func randomWalk(n int, seed uint64) []float64 {
	noise := timedataset.GenerateNoise(n, 1.0, seed)
	y := make([]float64, n)
	cum := 0.0
	for i, v := range noise {
		cum += v
		y[i] = cum
	}
	return y
}

func TestOrderString(t *testing.T) {
	testData := map[string]struct {
		o        Order
		expected string
	}{
		"non seasonal": {o: Order{P: 1, D: 1, Q: 2}, expected: "ARIMA(1,1,2)"},
		"seasonal":     {o: Order{P: 1, Q: 1, SP: 1, SD: 1, Period: 7}, expected: "ARIMA(1,0,1)(1,1,0)[7]"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.o.String())
		})
	}
}

func TestParseOrder(t *testing.T) {
	testData := map[string]struct {
		s        string
		expected Order
		err      error
	}{
		"short":    {s: "1,1,1", expected: Order{P: 1, D: 1, Q: 1}},
		"seasonal": {s: "2, 0, 1, 1, 1, 0, 7", expected: Order{P: 2, Q: 1, SP: 1, SD: 1, Period: 7}},
		"garbage":  {s: "a,b,c", err: ErrInvalidOrder},
		"length":   {s: "1,2", err: ErrInvalidOrder},
		"negative": {s: "-1,0,0", err: ErrNegativeOrder},
		"period":   {s: "0,0,0,1,0,0,1", err: ErrSeasonalPeriod},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			o, err := ParseOrder(td.s)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, o)
		})
	}
}

func TestPolynomials(t *testing.T) {
	assert.Equal(t, []float64{1, -2, 1}, polyMul([]float64{1, -1}, []float64{1, -1}))
	assert.Equal(t, []float64{1, 0, -0.5}, seasonalPoly([]float64{0.5}, 2, -1))
	assert.Equal(t, []float64{1, -1, 0, -1, 1}, diffPoly(Order{D: 1, SD: 1, Period: 3}))

	// random walk psi weights are all one
	assert.Equal(t, []float64{1, 1, 1, 1}, psiWeights([]float64{1, -1}, []float64{1}, 4))
	// ar1 psi weights decay geometrically
	assert.InDeltaSlice(t, []float64{1, 0.5, 0.25}, psiWeights([]float64{1, -0.5}, []float64{1}, 3), 1e-12)
}

func TestStationarity(t *testing.T) {
	testData := map[string]struct {
		phi      []float64
		expected bool
	}{
		"empty":          {expected: true},
		"ar1":            {phi: []float64{0.5}, expected: true},
		"unit root":      {phi: []float64{1}, expected: false},
		"ar2 stationary": {phi: []float64{0.5, 0.3}, expected: true},
		"ar2 explosive":  {phi: []float64{0.5, 0.6}, expected: false},
		"trailing zero":  {phi: []float64{0.4, 0}, expected: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, stationary(td.phi))
		})
	}
	assert.True(t, invertible([]float64{0.5}))
	assert.False(t, invertible([]float64{-1.2}))
}

func TestFitAR1(t *testing.T) {
	y := timedataset.GenerateAR1(1000, 10, 0.6, 1.0, 3)
	f, err := New(NewDefaultOptions(Order{P: 1}))
	require.NoError(t, err)

	m, err := f.Fit(dataset(t, y))
	require.NoError(t, err)
	model := m.(*Model)

	coef := model.Coefficients()
	require.Len(t, coef.AR, 1)
	assert.InDelta(t, 0.6, coef.AR[0], 0.08)
	assert.InDelta(t, 10, coef.Mean, 0.3)
	assert.InDelta(t, 1.0, model.Sigma2(), 0.15)

	res, err := m.Forecast(30)
	require.NoError(t, err)
	require.Equal(t, 30, res.Len())
	// long horizon reverts to the mean
	assert.InDelta(t, coef.Mean, res.Forecast[29], 0.05)
	assert.True(t, math.IsNaN(m.Residuals()[0]))
	assert.False(t, math.IsNaN(m.Residuals()[1]))
}

func TestFitRandomWalk(t *testing.T) {
	y := randomWalk(300, 5)
	f, err := New(NewDefaultOptions(Order{D: 1}))
	require.NoError(t, err)

	m, err := f.Fit(dataset(t, y))
	require.NoError(t, err)

	res, err := m.Forecast(9)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		assert.InDelta(t, y[len(y)-1], res.Forecast[i], 1e-9)
	}
	// interval width grows with sqrt(h)
	w1 := res.Upper[0] - res.Lower[0]
	w9 := res.Upper[8] - res.Lower[8]
	assert.InDelta(t, 3.0, w9/w1, 1e-9)
}

func TestFitSeasonal(t *testing.T) {
	n := 210
	pattern := []float64{-4, -2, 0, 1, 2, 8, -5}
	y := timedataset.GenerateConstY(n, 50).
		Add(timedataset.GeneratePeriodicY(n, pattern)).
		Add(timedataset.GenerateNoise(n, 0.5, 8))

	f, err := New(NewDefaultOptions(Order{Q: 0, SQ: 1, SD: 1, Period: 7}))
	require.NoError(t, err)
	m, err := f.Fit(dataset(t, y))
	require.NoError(t, err)
	assert.Equal(t, "ARIMA(0,0,0)(0,1,1)[7]", m.Name())

	res, err := m.Forecast(7)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		assert.InDelta(t, 50+pattern[(n+i)%7], res.Forecast[i], 1.5)
	}
}

func TestFitErrors(t *testing.T) {
	testData := map[string]struct {
		y     []float64
		order Order
		err   error
	}{
		"too short": {
			y:     []float64{1, 2, 3, 4},
			order: Order{P: 2, Q: 2},
			err:   forecast.ErrInsufficientTrainingData,
		},
		"nan": {
			y:     append(timedataset.GenerateNoise(20, 1, 1), math.NaN()),
			order: Order{P: 1},
			err:   forecast.ErrNonFiniteTrainingData,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(NewDefaultOptions(td.order))
			require.NoError(t, err)
			_, err = f.Fit(dataset(t, td.y))
			var fitErr *forecast.FitError
			require.ErrorAs(t, err, &fitErr)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestNonConvergence(t *testing.T) {
	y := timedataset.GenerateAR1(300, 0, 0.5, 1.0, 4)
	_, err := fitOrder(y, Order{P: 2, Q: 2}, 1)
	assert.ErrorIs(t, err, forecast.ErrNonConvergence)
}

func TestAutoDifferencing(t *testing.T) {
	a, err := NewAuto(nil)
	require.NoError(t, err)

	d, sd := a.Differencing(randomWalk(400, 13))
	assert.Equal(t, 1, d)
	assert.Equal(t, 0, sd)

	d, sd = a.Differencing(timedataset.GenerateNoise(400, 1.0, 14))
	assert.Equal(t, 0, d)
	assert.Equal(t, 0, sd)
}

func TestAutoSearch(t *testing.T) {
	y := timedataset.GenerateAR1(500, 20, 0.7, 1.0, 21)
	opt := NewDefaultAutoOptions()
	opt.Period = 1
	a, err := NewAuto(opt)
	require.NoError(t, err)

	m, err := a.Fit(dataset(t, y))
	require.NoError(t, err)
	order := m.(*Model).Order()
	assert.False(t, order.Seasonal())
	assert.Equal(t, 0, order.D)
	assert.GreaterOrEqual(t, order.P+order.Q, 1)

	res, err := m.Forecast(15)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Len())
}

func TestAutoSearchBudget(t *testing.T) {
	y := timedataset.GenerateAR1(200, 0, 0.3, 1.0, 2)
	opt := NewDefaultAutoOptions()
	opt.Period = 1
	opt.MaxModels = 2
	a, err := NewAuto(opt)
	require.NoError(t, err)

	res, err := a.Search(y)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Evaluated, 2)
}

func TestAutoSearchFailure(t *testing.T) {
	opt := NewDefaultAutoOptions()
	opt.Period = 1
	opt.MaxIterations = 1
	opt.MaxModels = 3
	a, err := NewAuto(opt)
	require.NoError(t, err)

	_, err = a.Fit(dataset(t, timedataset.GenerateAR1(200, 5, 0.3, 1.0, 2)))
	var fitErr *forecast.FitError
	require.ErrorAs(t, err, &fitErr)
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.Equal(t, "auto_arima", fitErr.Model)
}

func TestNeighbours(t *testing.T) {
	assert.Len(t, neighbours(Order{P: 1, Q: 1}, false), 6)
	assert.Len(t, neighbours(Order{P: 1, Q: 1, SP: 1, Period: 7}, true), 12)
}
