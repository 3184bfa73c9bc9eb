package salesforecast

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/forecast/arima"
	"github.com/aouyang1/go-salesforecast/forecast/ets"
	"github.com/aouyang1/go-salesforecast/forecast/naive"
	"github.com/aouyang1/go-salesforecast/forecast/prophet"
)

// ModelKind names a model family
type ModelKind string

const (
	ModelMean      ModelKind = "mean"
	ModelNaive     ModelKind = "naive"
	ModelSNaive    ModelKind = "snaive"
	ModelDrift     ModelKind = "drift"
	ModelETS       ModelKind = "ets"
	ModelARIMA     ModelKind = "arima"
	ModelAutoARIMA ModelKind = "auto_arima"
	ModelProphet   ModelKind = "prophet"
)

var ErrUnknownModel = errors.New("unknown model kind")

// ModelOptions configures one model of the comparison. Only the options of Kind are used.
type ModelOptions struct {
	Kind      ModelKind          `json:"kind" mapstructure:"kind"`
	Naive     *naive.Options     `json:"naive,omitempty" mapstructure:"naive"`
	ETS       *ets.Options       `json:"ets,omitempty" mapstructure:"ets"`
	ARIMA     *arima.Options     `json:"arima,omitempty" mapstructure:"arima"`
	AutoARIMA *arima.AutoOptions `json:"auto_arima,omitempty" mapstructure:"auto_arima"`
	Prophet   *prophet.Options   `json:"prophet,omitempty" mapstructure:"prophet"`
}

// NewModelOptions returns the default options of a model kind for the seasonal period. The
// manual ARIMA defaults to ARIMA(1,0,1)(0,1,1)[period].
func NewModelOptions(kind ModelKind, period int) ModelOptions {
	m := ModelOptions{Kind: kind}
	switch kind {
	case ModelMean, ModelNaive, ModelSNaive, ModelDrift:
		m.Naive = naive.NewDefaultOptions(naive.Method(kind))
		m.Naive.Period = period
	case ModelETS:
		m.ETS = ets.NewDefaultOptions()
		m.ETS.Period = period
	case ModelARIMA:
		m.ARIMA = arima.NewDefaultOptions(arima.Order{P: 1, Q: 1, SD: 1, SQ: 1, Period: period})
	case ModelAutoARIMA:
		m.AutoARIMA = arima.NewDefaultAutoOptions()
		m.AutoARIMA.Period = period
	case ModelProphet:
		m.Prophet = prophet.NewDefaultOptions()
	}
	return m
}

// DefaultModels returns the benchmark, exponential smoothing, ARIMA and Prophet models
func DefaultModels(period int) []ModelOptions {
	return []ModelOptions{
		NewModelOptions(ModelSNaive, period),
		NewModelOptions(ModelETS, period),
		NewModelOptions(ModelARIMA, period),
		NewModelOptions(ModelAutoARIMA, period),
		NewModelOptions(ModelProphet, period),
	}
}

// Fitter builds the fitter of the model. Unset periods and levels take the pipeline values.
func (m ModelOptions) Fitter(period int, level float64) (forecast.Fitter, error) {
	if m.Kind == "" {
		return nil, fmt.Errorf("empty kind, %w", ErrUnknownModel)
	}
	defaults := NewModelOptions(m.Kind, period)

	switch m.Kind {
	case ModelMean, ModelNaive, ModelSNaive, ModelDrift:
		opt := pick(m.Naive, defaults.Naive)
		opt.Method = naive.Method(m.Kind)
		opt.Period = orInt(opt.Period, period)
		opt.Level = orFloat(opt.Level, level)
		return naive.New(&opt)
	case ModelETS:
		opt := pick(m.ETS, defaults.ETS)
		if opt.Trend == "" {
			opt.Trend = ets.TrendAuto
		}
		if opt.Seasonal == "" {
			opt.Seasonal = ets.SeasonalAuto
		}
		opt.Period = orInt(opt.Period, period)
		opt.Level = orFloat(opt.Level, level)
		return ets.New(&opt)
	case ModelARIMA:
		opt := pick(m.ARIMA, defaults.ARIMA)
		if opt.Order.Seasonal() {
			opt.Order.Period = orInt(opt.Order.Period, period)
		}
		opt.Level = orFloat(opt.Level, level)
		return arima.New(&opt)
	case ModelAutoARIMA:
		opt := pick(m.AutoARIMA, defaults.AutoARIMA)
		opt.Period = orInt(opt.Period, period)
		opt.Level = orFloat(opt.Level, level)
		return arima.NewAuto(&opt)
	case ModelProphet:
		opt := pick(m.Prophet, defaults.Prophet)
		opt.Level = orFloat(opt.Level, level)
		return prophet.New(&opt)
	}
	return nil, fmt.Errorf("%q, %w", m.Kind, ErrUnknownModel)
}

// pick copies the configured options, or the defaults when unset, so fitting never mutates
// the configuration
func pick[T any](configured, defaults *T) T {
	if configured != nil {
		return *configured
	}
	return *defaults
}

func orInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
