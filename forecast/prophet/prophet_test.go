package prophet

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecast/event"
	"github.com/aouyang1/go-salesforecast/feature"
	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"github.com/rickar/cal/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var start = time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)

var weekPattern = []float64{-4, -2, 0, 1, 2, 8, -5}

func dataset(t *testing.T, y []float64) *timedataset.TimeDataset {
	t.Helper()
	td, err := timedataset.NewUnivariateDataset(timedataset.GenerateDailyT(start, len(y)), y)
	require.NoError(t, err)
	return td
}

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *Options
		err error
	}{
		"nil":            {},
		"unknown mode":   {opt: &Options{SeasonalityMode: "log", Level: 0.95}, err: ErrUnknownSeasonalityMode},
		"negative reg":   {opt: &Options{Regularization: -1, Level: 0.95}, err: ErrNegativeRegularization},
		"bad level":      {opt: &Options{Level: 2}, err: forecast.ErrInvalidLevel},
		"bad percentile": {opt: &Options{Level: 0.95, OutlierOptions: OutlierOptions{NumPasses: 1, LowerPercentile: 0.9, UpperPercentile: 0.1}}, err: ErrInvalidPercentiles},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SeasonalityMultiplicative, opt.SeasonalityMode)
		})
	}
}

func TestGenerateAutoChangepoints(t *testing.T) {
	tSeries := timedataset.GenerateDailyT(start, 101)

	c := NewDefaultChangepointOptions()
	c.AutoNumChangepoints = 4
	chpts := c.GenerateAutoChangepoints(tSeries)
	require.Len(t, chpts, 4)
	// history of 80 points split into 4 segments
	expected := []time.Time{tSeries[20], tSeries[40], tSeries[59], tSeries[79]}
	for i, chpt := range chpts {
		assert.Equal(t, expected[i], chpt.T)
	}
	assert.Equal(t, "auto_0", chpts[0].Name)
	assert.Equal(t, chpts, c.Changepoints)

	manual := ChangepointOptions{Changepoints: []Changepoint{NewChangepoint("cp", tSeries[5])}}
	assert.Equal(t, manual.Changepoints, manual.GenerateAutoChangepoints(tSeries))

	short := NewDefaultChangepointOptions()
	assert.Empty(t, short.GenerateAutoChangepoints(tSeries[:2]))
}

func TestChangepointFeatures(t *testing.T) {
	tSeries := timedataset.GenerateDailyT(start, 5)
	sc := newScaler(tSeries)
	feat := generateChangepointFeatures([]Changepoint{
		NewChangepoint("a", tSeries[2]),
		NewChangepoint("late", tSeries[4].AddDate(0, 0, 1)),
	}, tSeries, sc)

	require.Equal(t, 1, feat.Len())
	vals, exists := feat.Get(feature.NewChangepoint("a"))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0.25, 0.5}, vals, 1e-12)
}

func TestSeasonalityActive(t *testing.T) {
	opt := SeasonalityOptions{SeasonalityConfigs: []SeasonalityConfig{
		NewYearlySeasonalityConfig(10),
		NewWeeklySeasonalityConfig(3),
		NewSeasonalityConfig("dup_weekly", 7*24*time.Hour, 2),
		NewSeasonalityConfig("empty", 24*time.Hour, 0),
	}}

	testData := map[string]struct {
		history  time.Duration
		expected []string
	}{
		"short history": {history: 100 * 24 * time.Hour, expected: []string{LabelSeasWeekly}},
		"two years":     {history: 800 * 24 * time.Hour, expected: []string{LabelSeasWeekly, LabelSeasYearly}},
		"too short":     {history: 10 * 24 * time.Hour},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var names []string
			for _, cfg := range opt.active(td.history) {
				names = append(names, cfg.Name)
			}
			assert.Equal(t, td.expected, names)
		})
	}
}

func TestFourierFeatures(t *testing.T) {
	tSeries := timedataset.GenerateDailyT(start, 14)
	feat := generateFourierFeatures(tSeries, []SeasonalityConfig{NewWeeklySeasonalityConfig(2)})
	require.Equal(t, 4, feat.Len())

	vals, exists := feat.Get(feature.NewSeasonality(LabelSeasWeekly, feature.Sin, 1))
	require.True(t, exists)
	for i := 0; i < 7; i++ {
		assert.InDelta(t, vals[i], vals[i+7], 1e-9)
	}
}

func TestHolidayFeatures(t *testing.T) {
	tSeries := timedataset.GenerateDailyT(time.Date(2015, 12, 20, 0, 0, 0, 0, time.UTC), 20)
	h := HolidayOptions{Holidays: []*cal.Holiday{event.Christmas, event.NewYear}, DaysAfter: 1}
	feat := h.generateFeatures(tSeries)
	require.Equal(t, 2, feat.Len())

	xmas, exists := feat.Get(feature.NewEvent("Christmas"))
	require.True(t, exists)
	expected := make([]float64, 20)
	expected[5], expected[6] = 1, 1
	assert.Equal(t, expected, xmas)

	newYear, exists := feat.Get(feature.NewEvent("New_Year"))
	require.True(t, exists)
	assert.Equal(t, 1.0, newYear[12])
	assert.Equal(t, 1.0, newYear[13])
}

func seasonalSeries(n int, seed uint64) []float64 {
	return timedataset.GenerateTrendY(n, 100, 0.1).
		Add(timedataset.GeneratePeriodicY(n, weekPattern)).
		Add(timedataset.GenerateNoise(n, 0.3, seed))
}

func TestFitModes(t *testing.T) {
	n := 210
	additive := seasonalSeries(n, 5)
	multiplicative := timedataset.GenerateTrendY(n, 100, 0.1).
		Mul(timedataset.GenerateConstY(n, 1).Add(timedataset.GeneratePeriodicY(n, weekPattern).Scale(0.02))).
		Add(timedataset.GenerateNoise(n, 0.3, 6))

	testData := map[string]struct {
		y           []float64
		mode        SeasonalityMode
		unpenalized bool
		expectedQR  bool
	}{
		"additive":             {y: additive, mode: SeasonalityAdditive},
		"additive unpenalized": {y: additive, mode: SeasonalityAdditive, unpenalized: true, expectedQR: true},
		"multiplicative":       {y: multiplicative, mode: SeasonalityMultiplicative, expectedQR: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := NewDefaultOptions()
			opt.SeasonalityMode = td.mode
			opt.HolidayOptions = HolidayOptions{}
			if td.unpenalized {
				opt.Regularization = 0
			}
			f, err := New(opt)
			require.NoError(t, err)

			m, err := f.Fit(dataset(t, td.y))
			require.NoError(t, err)
			model := m.(*Model)
			assert.Equal(t, td.expectedQR, model.leastSquares)

			fitted := m.Fitted()
			require.Len(t, fitted, n)
			for i := range fitted {
				assert.InDelta(t, td.y[i], fitted[i], 2.0)
			}
			trend := model.TrendComponent()
			seas := model.SeasonalityComponent()
			for i := range fitted {
				assert.InDelta(t, fitted[i], trend[i]+seas[i], 1e-6)
			}

			res, err := m.Forecast(14)
			require.NoError(t, err)
			require.Equal(t, 14, res.Len())
			for i := 0; i < 14; i++ {
				idx := n + i
				expected := 100 + 0.1*float64(idx)
				if td.mode == SeasonalityAdditive {
					expected += weekPattern[idx%7]
				} else {
					expected *= 1 + 0.02*weekPattern[idx%7]
				}
				assert.InDelta(t, expected, res.Forecast[i], 2.5)
				assert.Less(t, res.Lower[i], res.Forecast[i])
				assert.Greater(t, res.Upper[i], res.Forecast[i])
			}

			coef := model.Coefficients()
			assert.Contains(t, coef, "growth_intercept")
			assert.Contains(t, coef, "growth_linear")
		})
	}
}

func TestLeastSquares(t *testing.T) {
	testData := map[string]struct {
		x          *mat.Dense
		y          []float64
		expectedQR bool
	}{
		"full rank": {
			x:          mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1}),
			y:          []float64{1, 2, 3},
			expectedQR: true,
		},
		"underdetermined": {
			x: mat.NewDense(1, 2, []float64{1, 1}),
			y: []float64{2},
		},
		"zero design": {
			x: mat.NewDense(3, 2, nil),
			y: []float64{0, 0, 0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			coef, qr, err := leastSquares(td.x, td.y, nil, NewDefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, td.expectedQR, qr)
			require.Len(t, coef, 2)

			pred := mulVec(td.x, coef, len(td.y))
			assert.InDeltaSlice(t, td.y, pred, 1e-3)
		})
	}
}

func TestFitWithHolidays(t *testing.T) {
	n := 400
	tSeries := timedataset.GenerateDailyT(start, n)
	y := seasonalSeries(n, 9)
	closures := event.Holidays([]*cal.Holiday{event.Christmas}, tSeries[0], tSeries[n-1], 0, 0)
	for i, tPnt := range tSeries {
		for _, e := range closures {
			if e.Contains(tPnt) {
				y[i] = 0
			}
		}
	}
	td, err := timedataset.NewUnivariateDataset(tSeries, y)
	require.NoError(t, err)

	opt := NewDefaultOptions()
	opt.SeasonalityMode = SeasonalityAdditive
	opt.HolidayOptions = HolidayOptions{Holidays: []*cal.Holiday{event.Christmas, event.IndependenceDay}}
	f, err := New(opt)
	require.NoError(t, err)
	m, err := f.Fit(td)
	require.NoError(t, err)

	coef := m.(*Model).Coefficients()
	require.Contains(t, coef, "event_Christmas")
	assert.Less(t, coef["event_Christmas"], -0.5)

	xmas := 0
	for i, tPnt := range tSeries {
		if tPnt.Month() == time.December && tPnt.Day() == 25 {
			xmas = i
		}
	}
	assert.InDelta(t, 0, m.Fitted()[xmas], 3.0)
}

func TestFitOutlierPasses(t *testing.T) {
	n := 140
	y := seasonalSeries(n, 3)
	y[50] = 400

	opt := NewDefaultOptions()
	opt.HolidayOptions = HolidayOptions{}
	opt.OutlierOptions.NumPasses = 2
	f, err := New(opt)
	require.NoError(t, err)

	m, err := f.Fit(dataset(t, y))
	require.NoError(t, err)
	model := m.(*Model)
	assert.Contains(t, model.Outliers(), 50)
	assert.Greater(t, m.Residuals()[50], 200.0)
}

func TestFitErrors(t *testing.T) {
	testData := map[string]struct {
		y   []float64
		opt *Options
		err error
	}{
		"too short": {
			y:   timedataset.GenerateConstY(5, 1),
			err: forecast.ErrInsufficientTrainingData,
		},
		"nan": {
			y:   append(seasonalSeries(30, 1), math.NaN()),
			err: forecast.ErrNonFiniteTrainingData,
		},
		"als limit": {
			y:   seasonalSeries(60, 2),
			opt: &Options{SeasonalityMode: SeasonalityMultiplicative, SeasonalityOptions: NewDefaultSeasonalityOptions(), ALSIterations: 1, Level: 0.95},
			err: forecast.ErrNonConvergence,
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
}

func TestTablePrint(t *testing.T) {
	var buf bytes.Buffer
	opt := NewDefaultOptions()
	require.NoError(t, opt.TablePrint(&buf, "", "  ", 0))
	out := buf.String()
	assert.Contains(t, out, "Seasonality Mode: multiplicative")
	assert.Contains(t, out, "weekly")
	assert.Contains(t, out, "Christmas")
}
