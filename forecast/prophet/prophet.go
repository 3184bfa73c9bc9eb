// Package prophet implements a decomposable regression forecaster y(t) = g(t) + s(t) + h(t), or
// g(t) * (1 + s(t) + h(t)) in multiplicative mode, with a piecewise linear trend g over automatic
// changepoints, fourier seasonality s and holiday indicators h. Changepoint rate changes are
// shrunk with a lasso penalty while every other term is left unpenalized.
package prophet

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecast/feature"
	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/models"
	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Fitter fits the decomposable model
type Fitter struct {
	opt *Options
}

func New(opt *Options) (*Fitter, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Fitter{opt: opt}, nil
}

func (f *Fitter) Name() string {
	return "prophet"
}

// Model is a fitted decomposable model
type Model struct {
	mode     SeasonalityMode
	holidays HolidayOptions
	sc       scaler
	seasCfgs []SeasonalityConfig
	chpts    []Changepoint

	trendLabels *feature.Labels
	seasLabels  *feature.Labels
	trendCoef   []float64 // first element is the intercept
	seasCoef    []float64
	yScale      float64

	level float64
	last  time.Time
	freq  time.Duration

	fitted    []float64
	residuals []float64
	trend     []float64
	seasonal  []float64
	outliers  []int
	sigma     float64
	alsIters  int

	// leastSquares is set when the last unpenalized solve went through QR
	leastSquares bool
}

// Fit scales the series by its maximum absolute value, builds the design on the scaled time axis
// and solves it, optionally refitting without residual outliers.
func (f *Fitter) Fit(train *timedataset.TimeDataset) (forecast.Model, error) {
	freq, err := forecast.ValidateTraining(train, DefaultMinTrainingDays)
	if err != nil {
		return nil, forecast.NewFitError(f.Name(), err)
	}

	chptOpt := f.opt.ChangepointOptions
	chpts := chptOpt.GenerateAutoChangepoints(train.T)
	history := train.T[train.Len()-1].Sub(train.T[0]) + freq

	m := &Model{
		mode:     f.opt.SeasonalityMode,
		holidays: f.opt.HolidayOptions,
		sc:       newScaler(train.T),
		seasCfgs: f.opt.SeasonalityOptions.active(history),
		chpts:    chpts,
		yScale:   floats.Norm(train.Y, math.Inf(1)),
		level:    f.opt.Level,
		last:     train.T[train.Len()-1],
		freq:     freq,
	}
	if m.yScale == 0 {
		m.yScale = 1
	}

	trendSet, seasSet := m.features(train.T)
	seasSet.RemoveZeroOnlyFeatures()
	m.trendLabels = trendSet.Labels()
	m.seasLabels = seasSet.Labels()
	seasKinds := m.seasLabels.Kinds()
	slog.Debug("prophet regressors",
		"changepoints", m.trendLabels.Kinds()[feature.KindChangepoint],
		"fourier_terms", seasKinds[feature.KindSeasonality],
		"holidays", seasKinds[feature.KindEvent],
	)
	xT := trendSet.Matrix(true)
	xS := seasSet.Matrix(false)

	n := train.Len()
	ys := make([]float64, n)
	floats.ScaleTo(ys, 1/m.yScale, train.Y)

	keep := make([]int, n)
	for i := range keep {
		keep[i] = i
	}

	outOpt := f.opt.OutlierOptions
	for pass := 0; ; pass++ {
		if err := m.solve(f.opt, subRows(xT, keep), subRows(xS, keep), pick(ys, keep)); err != nil {
			return nil, forecast.NewFitError(f.Name(), err)
		}
		if pass >= outOpt.NumPasses {
			break
		}

		yhat := m.combine(mulVec(xT, m.trendCoef, n), mulVec(xS, m.seasCoef, n))
		res := make([]float64, len(keep))
		for i, idx := range keep {
			res[i] = ys[idx] - yhat[idx]
		}
		outIdx := stats.DetectOutliers(res, outOpt.LowerPercentile, outOpt.UpperPercentile, outOpt.TukeyFactor)
		if len(outIdx) == 0 {
			break
		}
		drop := make(map[int]bool, len(outIdx))
		for _, i := range outIdx {
			drop[i] = true
			m.outliers = append(m.outliers, keep[i])
		}
		nextKeep := make([]int, 0, len(keep)-len(outIdx))
		for i, idx := range keep {
			if !drop[i] {
				nextKeep = append(nextKeep, idx)
			}
		}
		keep = nextKeep
		slog.Debug("removed prophet training outliers", "pass", pass+1, "outliers", len(outIdx))
	}

	m.trend = mulVec(xT, m.trendCoef, n)
	seas := mulVec(xS, m.seasCoef, n)
	m.fitted = m.combine(m.trend, seas)
	m.seasonal = make([]float64, n)
	for i := range m.fitted {
		m.seasonal[i] = (m.fitted[i] - m.trend[i]) * m.yScale
		m.trend[i] *= m.yScale
		m.fitted[i] *= m.yScale
	}
	m.residuals = forecast.Residuals(train.Y, m.fitted)
	m.sigma = forecast.Sigma(pick(m.residuals, keep), m.numNonZero())
	return m, nil
}

// solve fits the coefficients on the given rows. The additive mode is a single lasso over the
// trend and seasonal columns. The multiplicative mode alternates between the trend given the
// seasonal multiplier and the seasonal terms given the trend.
func (m *Model) solve(opt *Options, xT, xS *mat.Dense, y []float64) error {
	penalty := m.trendPenalties()
	_, nS := dims(xS)

	if m.mode == SeasonalityAdditive || nS == 0 {
		x := xT
		if nS > 0 {
			var aug mat.Dense
			aug.Augment(xT, xS)
			x = &aug
			penalty = append(penalty, make([]float64, nS)...)
		}
		nT := len(penalty) - nS
		var coef []float64
		var err error
		if opt.Regularization == 0 {
			coef, m.leastSquares, err = leastSquares(x, y, nil, opt)
		} else {
			coef, err = lasso(x, y, opt.Regularization, penalty, nil, opt)
		}
		if err != nil {
			return err
		}
		m.trendCoef = coef[:nT]
		m.seasCoef = coef[nT:]
		m.alsIters = 1
		return nil
	}

	n := len(y)
	gamma := make([]float64, nS)
	var beta []float64
	prevSSE := math.Inf(1)
	for it := 1; it <= opt.ALSIterations; it++ {
		mult := mulVec(xS, gamma, n)
		for i := range mult {
			mult[i] += 1
		}
		coef, err := lasso(scaleRows(xT, mult), y, opt.Regularization, penalty, beta, opt)
		if err != nil {
			return err
		}
		beta = coef

		tr := mulVec(xT, beta, n)
		target := make([]float64, n)
		floats.SubTo(target, y, tr)
		gamma, m.leastSquares, err = leastSquares(scaleRows(xS, tr), target, gamma, opt)
		if err != nil {
			return err
		}

		m.trendCoef, m.seasCoef = beta, gamma
		m.alsIters = it
		yhat := m.combine(tr, mulVec(xS, gamma, n))
		sse := 0.0
		for i := range y {
			d := y[i] - yhat[i]
			sse += d * d
		}
		if it > 1 && math.Abs(prevSSE-sse) <= opt.ALSTolerance*math.Max(prevSSE, 1e-12) {
			return nil
		}
		prevSSE = sse
	}
	return fmt.Errorf("alternating least squares did not settle after %d iterations, %w",
		opt.ALSIterations, forecast.ErrNonConvergence)
}

// leastSquares solves the unpenalized fit by QR. Rank deficient designs, such as a seasonal
// block scaled by an all zero trend, fall back to coordinate descent which leaves the
// unidentified coefficients at their starting values. Reports whether QR produced the result.
func leastSquares(x *mat.Dense, y, warm []float64, opt *Options) ([]float64, bool, error) {
	reg, err := models.NewOLSRegression(&models.OLSOptions{FitIntercept: false})
	if err != nil {
		return nil, false, err
	}
	err = reg.Fit(x, mat.NewDense(len(y), 1, y))
	if err == nil {
		return reg.Coef(), true, nil
	}
	if !errors.Is(err, models.ErrSingularMatrix) && !errors.Is(err, models.ErrUnderdetermined) {
		return nil, false, err
	}
	slog.Debug("least squares design is rank deficient, using coordinate descent", "error", err.Error())
	coef, err := lasso(x, y, 0, nil, warm, opt)
	return coef, false, err
}

func lasso(x *mat.Dense, y []float64, lambda float64, penalty, warm []float64, opt *Options) ([]float64, error) {
	lassoOpt := &models.LassoOptions{
		WarmStartBeta:  warm,
		Lambda:         lambda,
		PenaltyFactors: penalty,
		Iterations:     opt.Iterations,
		Tolerance:      opt.Tolerance,
		FitIntercept:   false,
	}
	reg, err := models.NewLassoRegression(lassoOpt)
	if err != nil {
		return nil, err
	}
	if err := reg.Fit(x, mat.NewDense(len(y), 1, y)); err != nil {
		return nil, err
	}
	return reg.Coef(), nil
}

// trendPenalties leaves the intercept and base growth unpenalized
func (m *Model) trendPenalties() []float64 {
	labels := m.trendLabels.Features()
	penalty := make([]float64, 0, len(labels)+1)
	penalty = append(penalty, 0)
	for _, l := range labels {
		if l.Kind == feature.KindChangepoint {
			penalty = append(penalty, 1)
			continue
		}
		penalty = append(penalty, 0)
	}
	return penalty
}

func (m *Model) combine(trend, seas []float64) []float64 {
	res := make([]float64, len(trend))
	for i := range trend {
		if m.mode == SeasonalityMultiplicative {
			res[i] = trend[i] * (1 + seas[i])
			continue
		}
		res[i] = trend[i] + seas[i]
	}
	return res
}

// features generates the trend and the seasonal plus holiday feature sets for t
func (m *Model) features(t []time.Time) (*feature.Set, *feature.Set) {
	trendSet := feature.NewSet()
	linear := make([]float64, len(t))
	for i, tPnt := range t {
		linear[i] = m.sc.scale(tPnt)
	}
	trendSet.Set(feature.Linear(), linear)
	trendSet.Update(generateChangepointFeatures(m.chpts, t, m.sc))

	seasSet := generateFourierFeatures(t, m.seasCfgs)
	seasSet.Update(m.holidays.generateFeatures(t))
	return trendSet, seasSet
}

func (m *Model) predict(t []time.Time) ([]float64, []float64) {
	trendSet, seasSet := m.features(t)
	n := len(t)
	trend := mulVec(selectMatrix(trendSet, m.trendLabels, n, true), m.trendCoef, n)
	seas := mulVec(selectMatrix(seasSet, m.seasLabels, n, false), m.seasCoef, n)
	yhat := m.combine(trend, seas)
	floats.Scale(m.yScale, yhat)
	floats.Scale(m.yScale, trend)
	return yhat, trend
}

func (m *Model) numNonZero() int {
	k := 0
	for _, c := range m.trendCoef {
		if c != 0 {
			k++
		}
	}
	for _, c := range m.seasCoef {
		if c != 0 {
			k++
		}
	}
	return k
}

func (m *Model) Name() string {
	return "prophet"
}

func (m *Model) Fitted() []float64 {
	return copySlice(m.fitted)
}

func (m *Model) Residuals() []float64 {
	return copySlice(m.residuals)
}

// TrendComponent returns the fitted piecewise linear trend of the training window
func (m *Model) TrendComponent() []float64 {
	return copySlice(m.trend)
}

// SeasonalityComponent returns the fitted seasonal and holiday effect of the training window
// on the scale of the series.
func (m *Model) SeasonalityComponent() []float64 {
	return copySlice(m.seasonal)
}

// Outliers returns the training indexes dropped by the outlier passes
func (m *Model) Outliers() []int {
	res := make([]int, len(m.outliers))
	copy(res, m.outliers)
	return res
}

func (m *Model) Changepoints() []Changepoint {
	res := make([]Changepoint, len(m.chpts))
	copy(res, m.chpts)
	return res
}

// Coefficients returns the coefficients on the scaled series keyed by feature
func (m *Model) Coefficients() map[string]float64 {
	coef := make(map[string]float64)
	if len(m.trendCoef) > 0 {
		coef[feature.Intercept().String()] = m.trendCoef[0]
	}
	for i, l := range m.trendLabels.Features() {
		coef[l.String()] = m.trendCoef[i+1]
	}
	for i, l := range m.seasLabels.Features() {
		coef[l.String()] = m.seasCoef[i]
	}
	return coef
}

// Forecast extends the trend and seasonality past the training window with a constant
// interval of the residual standard deviation.
func (m *Model) Forecast(horizon int) (*forecast.Result, error) {
	if err := forecast.ValidateHorizon(horizon); err != nil {
		return nil, err
	}
	t := forecast.Timeline(m.last, m.freq, horizon)
	point, _ := m.predict(t)
	se := make([]float64, horizon)
	for i := range se {
		se[i] = m.sigma
	}
	return forecast.NewResult(m.Name(), m.level, t, point, se)
}

// selectMatrix lays out the set in the trained label order, zero filling labels the set lacks
func selectMatrix(set *feature.Set, labels *feature.Labels, n int, intercept bool) *mat.Dense {
	sub := feature.NewSet()
	for _, l := range labels.Features() {
		vals, exists := set.Get(l)
		if !exists {
			vals = make([]float64, n)
		}
		sub.Set(l, vals)
	}
	if sub.Len() == 0 && intercept {
		ones := make([]float64, n)
		floats.AddConst(1, ones)
		return mat.NewDense(n, 1, ones)
	}
	return sub.Matrix(intercept)
}

func mulVec(x *mat.Dense, coef []float64, n int) []float64 {
	res := make([]float64, n)
	if x == nil || len(coef) == 0 {
		return res
	}
	var v mat.VecDense
	v.MulVec(x, mat.NewVecDense(len(coef), coef))
	for i := range res {
		res[i] = v.AtVec(i)
	}
	return res
}

func scaleRows(x *mat.Dense, w []float64) *mat.Dense {
	r, c := x.Dims()
	res := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			res.Set(i, j, x.At(i, j)*w[i])
		}
	}
	return res
}

func subRows(x *mat.Dense, rows []int) *mat.Dense {
	if x == nil {
		return nil
	}
	r, c := x.Dims()
	if len(rows) == r {
		return x
	}
	res := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		res.SetRow(i, x.RawRowView(row))
	}
	return res
}

func dims(x *mat.Dense) (int, int) {
	if x == nil {
		return 0, 0
	}
	return x.Dims()
}

func pick(y []float64, idx []int) []float64 {
	res := make([]float64, len(idx))
	for i, j := range idx {
		res[i] = y[j]
	}
	return res
}

func copySlice(y []float64) []float64 {
	res := make([]float64, len(y))
	copy(res, y)
	return res
}
