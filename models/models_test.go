package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testModel(t *testing.T, model Model, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	t.Helper()
	err := model.Fit(x, y)
	require.NoError(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol)
	assert.InDeltaSlice(t, coef, model.Coef(), tol)

	r2, err := model.Score(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, tol)
}

func denseFromRows(rows [][]float64) *mat.Dense {
	m := len(rows)
	n := len(rows[0])
	data := make([]float64, 0, m*n)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data)
}

func TestOLSOptionsValidate(t *testing.T) {
	var opt *OLSOptions
	res, err := opt.Validate()
	require.NoError(t, err)
	assert.Equal(t, NewDefaultOLSOptions(), res)
}

func TestOLSRegression(t *testing.T) {
	tol := 1e-5
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *OLSOptions
		intercept float64
		coef      []float64
	}{
		"ols model intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			opt:       NewDefaultOLSOptions(),
			intercept: 2,
			coef:      []float64{3, 4},
		},
		"ols model no intercept": {
			x: [][]float64{
				{1, 0},
				{1, 5},
				{1, 20},
				{1, 6},
				{1, 10},
			},
			y:         []float64{2, 22, 82, 26, 42},
			opt:       &OLSOptions{FitIntercept: false},
			intercept: 0,
			coef:      []float64{2, 4},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x := denseFromRows(td.x)
			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewOLSRegression(td.opt)
			require.NoError(t, err)
			testModel(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func TestOLSErrors(t *testing.T) {
	model, err := NewOLSRegression(nil)
	require.NoError(t, err)

	assert.ErrorIs(t, model.Fit(nil, nil), ErrNoTrainingMatrix)
	assert.ErrorIs(t, model.Fit(mat.NewDense(2, 1, []float64{1, 2}), nil), ErrNoTargetMatrix)
	assert.ErrorIs(t,
		model.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(3, 1, []float64{1, 2, 3})),
		ErrTargetLenMismatch,
	)
	assert.ErrorIs(t,
		model.Fit(mat.NewDense(1, 2, []float64{1, 2}), mat.NewDense(1, 1, []float64{1})),
		ErrUnderdetermined,
	)

	_, err = model.Predict(mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}

func TestLassoRegression(t *testing.T) {
	x := denseFromRows([][]float64{
		{0, 0},
		{3, 5},
		{9, 20},
		{12, 6},
		{15, 10},
	})
	y := mat.NewDense(5, 1, []float64{2, 31, 109, 62, 87})

	t.Run("zero lambda converges to ols", func(t *testing.T) {
		opt := NewDefaultLassoOptions()
		opt.Lambda = 0
		opt.Iterations = 100000
		opt.Tolerance = 1e-10
		model, err := NewLassoRegression(opt)
		require.NoError(t, err)
		testModel(t, model, x, y, 2, []float64{3, 4}, 1e-3)
	})

	t.Run("large lambda zeroes penalized features", func(t *testing.T) {
		opt := NewDefaultLassoOptions()
		opt.Lambda = 1e9
		opt.PenaltyFactors = []float64{1, 0}
		model, err := NewLassoRegression(opt)
		require.NoError(t, err)
		require.NoError(t, model.Fit(x, y))

		coef := model.Coef()
		assert.Equal(t, 0.0, coef[0])
		assert.NotEqual(t, 0.0, coef[1])
	})

	t.Run("penalty factor mismatch", func(t *testing.T) {
		opt := NewDefaultLassoOptions()
		opt.PenaltyFactors = []float64{1}
		model, err := NewLassoRegression(opt)
		require.NoError(t, err)
		assert.ErrorIs(t, model.Fit(x, y), ErrPenaltyLenMismatch)
	})
}

func TestLassoOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *LassoOptions
		err error
	}{
		"nil":                 {opt: nil},
		"negative lambda":     {opt: &LassoOptions{Lambda: -1}, err: ErrNegativeLambda},
		"negative iterations": {opt: &LassoOptions{Iterations: -1}, err: ErrNegativeIterations},
		"negative tolerance":  {opt: &LassoOptions{Tolerance: -1}, err: ErrNegativeTolerance},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSoftThreshold(t *testing.T) {
	assert.Equal(t, 0.0, SoftThreshold(0.5, 1))
	assert.Equal(t, 1.0, SoftThreshold(2, 1))
	assert.Equal(t, -1.0, SoftThreshold(-2, 1))
}
