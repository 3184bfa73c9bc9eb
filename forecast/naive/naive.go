// Package naive implements the benchmark forecasting methods: the historical mean, the naive
// last value, the seasonal naive last cycle and the drift between the first and last value.
package naive

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"gonum.org/v1/gonum/stat"
)

// Method selects the benchmark forecast
type Method string

const (
	MethodMean   Method = "mean"
	MethodNaive  Method = "naive"
	MethodSNaive Method = "snaive"
	MethodDrift  Method = "drift"
)

const DefaultPeriod = 7

var ErrUnknownMethod = errors.New("unknown naive method")

// Options configures a benchmark fitter
type Options struct {
	Method Method  `json:"method" mapstructure:"method"`
	Period int     `json:"period" mapstructure:"period"`
	Level  float64 `json:"level" mapstructure:"level"`
}

func NewDefaultOptions(method Method) *Options {
	return &Options{
		Method: method,
		Period: DefaultPeriod,
		Level:  forecast.DefaultLevel,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions(MethodSNaive)
	}
	switch o.Method {
	case MethodMean, MethodNaive, MethodDrift:
	case MethodSNaive:
		if o.Period <= 0 {
			return nil, forecast.ErrInvalidPeriod
		}
	default:
		return nil, fmt.Errorf("%q, %w", o.Method, ErrUnknownMethod)
	}
	if _, err := forecast.NormalQuantile(o.Level); err != nil {
		return nil, err
	}
	return o, nil
}

// Fitter fits one of the benchmark methods
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
	return string(f.opt.Method)
}

// Fit computes the in-sample one step fitted values and residual scale of the method
func (f *Fitter) Fit(train *timedataset.TimeDataset) (forecast.Model, error) {
	minLen := 1
	switch f.opt.Method {
	case MethodNaive, MethodDrift:
		minLen = 2
	case MethodSNaive:
		minLen = f.opt.Period + 1
	}
	freq, err := forecast.ValidateTraining(train, minLen)
	if err != nil {
		return nil, forecast.NewFitError(f.Name(), err)
	}

	y := train.Y
	n := len(y)
	fitted := forecast.NaNs(n)
	k := 0

	m := &Model{
		opt:  f.opt,
		last: train.T[n-1],
		freq: freq,
		n:    n,
	}

	switch f.opt.Method {
	case MethodMean:
		m.mean = stat.Mean(y, nil)
		for i := range fitted {
			fitted[i] = m.mean
		}
		k = 1
	case MethodNaive:
		for i := 1; i < n; i++ {
			fitted[i] = y[i-1]
		}
		m.lastValue = y[n-1]
	case MethodSNaive:
		p := f.opt.Period
		for i := p; i < n; i++ {
			fitted[i] = y[i-p]
		}
		m.lastCycle = make([]float64, p)
		copy(m.lastCycle, y[n-p:])
	case MethodDrift:
		m.lastValue = y[n-1]
		m.slope = (y[n-1] - y[0]) / float64(n-1)
		for i := 1; i < n; i++ {
			fitted[i] = y[i-1] + m.slope
		}
		k = 1
	}

	m.fitted = fitted
	m.residuals = forecast.Residuals(y, fitted)
	m.sigma = forecast.Sigma(m.residuals, k)
	return m, nil
}

// Model is a fitted benchmark forecast
type Model struct {
	opt  *Options
	last time.Time
	freq time.Duration
	n    int

	mean      float64
	lastValue float64
	lastCycle []float64
	slope     float64

	sigma     float64
	fitted    []float64
	residuals []float64
}

func (m *Model) Name() string {
	return string(m.opt.Method)
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

// Sigma returns the residual standard deviation
func (m *Model) Sigma() float64 {
	return m.sigma
}

// Forecast produces the horizon with the standard errors of each method
func (m *Model) Forecast(horizon int) (*forecast.Result, error) {
	if err := forecast.ValidateHorizon(horizon); err != nil {
		return nil, err
	}

	point := make([]float64, horizon)
	se := make([]float64, horizon)
	nf := float64(m.n)
	for i := 0; i < horizon; i++ {
		h := float64(i + 1)
		switch m.opt.Method {
		case MethodMean:
			point[i] = m.mean
			se[i] = m.sigma * math.Sqrt(1+1/nf)
		case MethodNaive:
			point[i] = m.lastValue
			se[i] = m.sigma * math.Sqrt(h)
		case MethodSNaive:
			p := len(m.lastCycle)
			point[i] = m.lastCycle[i%p]
			se[i] = m.sigma * math.Sqrt(float64(i/p+1))
		case MethodDrift:
			point[i] = m.lastValue + h*m.slope
			se[i] = m.sigma * math.Sqrt(h*(1+h/(nf-1)))
		}
	}
	return forecast.NewResult(m.Name(), m.opt.Level, forecast.Timeline(m.last, m.freq, horizon), point, se)
}
