// Package ets implements additive error exponential smoothing state space models with none,
// additive or damped trend and none or additive seasonality. Smoothing parameters and the
// initial level and trend are estimated by minimizing the in-sample squared one step errors
// with Nelder-Mead.
package ets

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

type TrendType string

const (
	TrendNone     TrendType = "N"
	TrendAdditive TrendType = "A"
	TrendDamped   TrendType = "Ad"
	TrendAuto     TrendType = "auto"
)

type SeasonalType string

const (
	SeasonalNone     SeasonalType = "N"
	SeasonalAdditive SeasonalType = "A"
	SeasonalAuto     SeasonalType = "auto"
)

const (
	DefaultPeriod        = 7
	DefaultMaxIterations = 5000

	phiLower = 0.8
	phiRange = 0.18
)

var (
	ErrUnknownTrend    = errors.New("unknown ets trend type")
	ErrUnknownSeasonal = errors.New("unknown ets seasonal type")
	ErrNoCandidate     = errors.New("no ets candidate could be fit")
)

// Options configures the ets fitter. Auto trend or seasonality fits every matching
// candidate and keeps the one with the lowest AICc.
type Options struct {
	Trend         TrendType    `json:"trend" mapstructure:"trend"`
	Seasonal      SeasonalType `json:"seasonal" mapstructure:"seasonal"`
	Period        int          `json:"period" mapstructure:"period"`
	Level         float64      `json:"level" mapstructure:"level"`
	MaxIterations int          `json:"max_iterations" mapstructure:"max_iterations"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Trend:         TrendAuto,
		Seasonal:      SeasonalAuto,
		Period:        DefaultPeriod,
		Level:         forecast.DefaultLevel,
		MaxIterations: DefaultMaxIterations,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	switch o.Trend {
	case TrendNone, TrendAdditive, TrendDamped, TrendAuto:
	default:
		return nil, fmt.Errorf("%q, %w", o.Trend, ErrUnknownTrend)
	}
	switch o.Seasonal {
	case SeasonalNone, SeasonalAuto:
	case SeasonalAdditive:
		if o.Period < 2 {
			return nil, forecast.ErrInvalidPeriod
		}
	default:
		return nil, fmt.Errorf("%q, %w", o.Seasonal, ErrUnknownSeasonal)
	}
	if _, err := forecast.NormalQuantile(o.Level); err != nil {
		return nil, err
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o, nil
}

type form struct {
	trend    TrendType
	seasonal SeasonalType
}

func (s form) String() string {
	return fmt.Sprintf("ETS(A,%s,%s)", s.trend, s.seasonal)
}

func (s form) numSmoothing() int {
	k := 1
	if s.trend != TrendNone {
		k++
	}
	if s.trend == TrendDamped {
		k++
	}
	if s.seasonal == SeasonalAdditive {
		k++
	}
	return k
}

// Fitter fits ets models
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
	if f.opt.Trend == TrendAuto || f.opt.Seasonal == SeasonalAuto {
		return "ets"
	}
	return form{f.opt.Trend, f.opt.Seasonal}.String()
}

func (f *Fitter) candidates(n int) []form {
	trends := []TrendType{f.opt.Trend}
	if f.opt.Trend == TrendAuto {
		trends = []TrendType{TrendNone, TrendAdditive, TrendDamped}
	}
	seasonals := []SeasonalType{f.opt.Seasonal}
	if f.opt.Seasonal == SeasonalAuto {
		seasonals = []SeasonalType{SeasonalNone}
		if f.opt.Period >= 2 && n >= 2*f.opt.Period {
			seasonals = append(seasonals, SeasonalAdditive)
		}
	}

	forms := make([]form, 0, len(trends)*len(seasonals))
	for _, s := range seasonals {
		for _, t := range trends {
			forms = append(forms, form{t, s})
		}
	}
	return forms
}

// Fit estimates every candidate and returns the one with the lowest AICc
func (f *Fitter) Fit(train *timedataset.TimeDataset) (forecast.Model, error) {
	minLen := 3
	if f.opt.Seasonal == SeasonalAdditive {
		minLen = 2 * f.opt.Period
	}
	freq, err := forecast.ValidateTraining(train, minLen)
	if err != nil {
		return nil, forecast.NewFitError(f.Name(), err)
	}

	var best *Model
	var errs []error
	for _, s := range f.candidates(train.Len()) {
		m, err := fitForm(train.Y, s, f.opt)
		if err != nil {
			slog.Debug("unable to fit ets candidate", "form", s.String(), "error", err.Error())
			errs = append(errs, err)
			continue
		}
		slog.Debug("fit ets candidate", "form", s.String(), "aicc", m.ic.AICc, "alpha", m.params.Alpha)
		if best == nil || m.ic.AICc < best.ic.AICc {
			best = m
		}
	}
	if best == nil {
		return nil, forecast.NewFitError(f.Name(), fmt.Errorf("%w: %w", ErrNoCandidate, errors.Join(errs...)))
	}
	best.last = train.T[train.Len()-1]
	best.freq = freq
	return best, nil
}

// Params holds the estimated smoothing parameters
type Params struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
	Phi   float64 `json:"phi"`
}

type initState struct {
	level  float64
	trend  float64
	season []float64
	scale  float64
}

type state struct {
	level  float64
	trend  float64
	season []float64
}

func fitForm(y []float64, s form, opt *Options) (*Model, error) {
	n := len(y)
	period := 1
	if s.seasonal == SeasonalAdditive {
		period = opt.Period
		if n < 2*period {
			return nil, fmt.Errorf("%s needs %d points, got %d, %w", s, 2*period, n, forecast.ErrInsufficientTrainingData)
		}
	}
	initial, err := initialStates(y, s, period)
	if err != nil {
		return nil, err
	}

	x0 := []float64{logit(0.3)}
	if s.trend != TrendNone {
		x0 = append(x0, logit(0.1))
	}
	if s.seasonal == SeasonalAdditive {
		x0 = append(x0, logit(0.1))
	}
	if s.trend == TrendDamped {
		x0 = append(x0, logit((0.9-phiLower)/phiRange))
	}
	x0 = append(x0, 0)
	if s.trend != TrendNone {
		x0 = append(x0, 0)
	}

	objective := func(x []float64) float64 {
		p, st := decode(x, s, initial)
		sse, _, _ := filter(y, s, p, st)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.MaxFloat64
		}
		return sse / float64(n)
	}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: opt.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 200,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{SimplexSize: 0.5})
	if err != nil {
		return nil, fmt.Errorf("unable to optimize %s, %w: %w", s, forecast.ErrNonConvergence, err)
	}
	switch result.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return nil, fmt.Errorf("%s stopped with status %v, %w", s, result.Status, forecast.ErrNonConvergence)
	}

	params, st := decode(result.X, s, initial)
	sse, fitted, final := filter(y, s, params, st)

	k := s.numSmoothing() + 1
	if s.trend != TrendNone {
		k++
	}
	if s.seasonal == SeasonalAdditive {
		k += period - 1
	}
	residuals := forecast.Residuals(y, fitted)

	return &Model{
		form:      s,
		params:    params,
		period:    period,
		level:     opt.Level,
		n:         n,
		final:     final,
		fitted:    fitted,
		residuals: residuals,
		sigma:     forecast.Sigma(residuals, k),
		ic:        stats.NewInformationCriteria(stats.GaussianLogLik(sse, n), n, k+1),
	}, nil
}

// initialStates estimates the level, trend and seasonal figure from the first cycles
func initialStates(y []float64, s form, period int) (initState, error) {
	n := len(y)
	initial := initState{scale: math.Max(stat.StdDev(y, nil), 1e-3)}

	if s.seasonal == SeasonalAdditive {
		span := min(n, 4*period)
		dec, err := stats.Decompose(y[:span], period)
		if err != nil {
			return initState{}, err
		}
		initial.season = dec.Figure
		initial.level = stat.Mean(y[:period], nil)
		if s.trend != TrendNone {
			initial.trend = (stat.Mean(y[period:2*period], nil) - initial.level) / float64(period)
		}
		return initial, nil
	}

	initial.level = y[0]
	if s.trend != TrendNone && n > 1 {
		initial.trend = y[1] - y[0]
	}
	return initial, nil
}

// decode maps the unconstrained optimizer vector onto the admissible parameter region
// 0 < beta < alpha < 1, 0 < gamma < 1 - alpha and 0.8 < phi < 0.98.
func decode(x []float64, s form, initial initState) (Params, state) {
	i := 0
	p := Params{Phi: 1}
	p.Alpha = sigmoid(x[i])
	i++
	if s.trend != TrendNone {
		p.Beta = p.Alpha * sigmoid(x[i])
		i++
	}
	if s.seasonal == SeasonalAdditive {
		p.Gamma = (1 - p.Alpha) * sigmoid(x[i])
		i++
	}
	if s.trend == TrendDamped {
		p.Phi = phiLower + phiRange*sigmoid(x[i])
		i++
	}
	if s.trend == TrendNone {
		p.Phi = 0
	}

	st := state{level: initial.level + x[i]*initial.scale}
	i++
	if s.trend != TrendNone {
		st.trend = initial.trend + x[i]*initial.scale/10.0
	}
	if initial.season != nil {
		st.season = make([]float64, len(initial.season))
		copy(st.season, initial.season)
	}
	return p, st
}

// filter runs the state recursion returning the sum of squared one step errors, the fitted
// values and the state after the last observation. The seasonal ring is indexed by t mod m.
func filter(y []float64, s form, p Params, st state) (float64, []float64, state) {
	fitted := make([]float64, len(y))
	season := st.season
	level, trend := st.level, st.trend
	m := len(season)

	sse := 0.0
	for t, v := range y {
		sPrev := 0.0
		if m > 0 {
			sPrev = season[t%m]
		}
		yhat := level + p.Phi*trend + sPrev
		e := v - yhat
		fitted[t] = yhat
		sse += e * e

		nextLevel := level + p.Phi*trend + p.Alpha*e
		trend = p.Phi*trend + p.Beta*e
		level = nextLevel
		if m > 0 {
			season[t%m] = sPrev + p.Gamma*e
		}
	}
	return sse, fitted, state{level: level, trend: trend, season: season}
}

// Model is a fitted ets model
type Model struct {
	form   form
	params Params
	period int
	level  float64
	n      int
	last   time.Time
	freq   time.Duration

	final     state
	fitted    []float64
	residuals []float64
	sigma     float64
	ic        stats.InformationCriteria
}

// Name returns the selected model in ETS(error,trend,season) notation
func (m *Model) Name() string {
	return m.form.String()
}

func (m *Model) Params() Params {
	return m.params
}

func (m *Model) InformationCriteria() stats.InformationCriteria {
	return m.ic
}

func (m *Model) Fitted() []float64 {
	res := make([]float64, len(m.fitted))
	copy(res, m.fitted)
	return res
}

func (m *Model) Residuals() []float64 {
	res := make([]float64, len(m.residuals))
	copy(res, m.residuals)
	return res
}

// Forecast projects the final state forward. The variance of the h step error is
// sigma^2 * (1 + sum_{j=1}^{h-1} c_j^2) with c_j = alpha + beta*phi_j + gamma*[j mod m == 0].
func (m *Model) Forecast(horizon int) (*forecast.Result, error) {
	if err := forecast.ValidateHorizon(horizon); err != nil {
		return nil, err
	}

	p := m.params
	point := make([]float64, horizon)
	se := make([]float64, horizon)
	season := m.final.season
	seasonLen := len(season)

	phiSum := 0.0
	phiPow := 1.0
	cumVar := 1.0
	for i := 0; i < horizon; i++ {
		h := i + 1
		phiPow *= p.Phi
		phiSum += phiPow

		sVal := 0.0
		if seasonLen > 0 {
			sVal = season[(m.n+i)%seasonLen]
		}
		point[i] = m.final.level + phiSum*m.final.trend + sVal

		if h > 1 {
			j := h - 1
			c := p.Alpha + p.Beta*dampedSum(p.Phi, j)
			if seasonLen > 0 && j%seasonLen == 0 {
				c += p.Gamma
			}
			cumVar += c * c
		}
		se[i] = m.sigma * math.Sqrt(cumVar)
	}
	return forecast.NewResult(m.Name(), m.level, forecast.Timeline(m.last, m.freq, horizon), point, se)
}

// dampedSum returns phi + phi^2 + ... + phi^j
func dampedSum(phi float64, j int) float64 {
	sum := 0.0
	pow := 1.0
	for i := 0; i < j; i++ {
		pow *= phi
		sum += pow
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
