package arima

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/aouyang1/go-salesforecast/timedataset"
)

const (
	DefaultPeriod    = 7
	DefaultMaxP      = 5
	DefaultMaxQ      = 5
	DefaultMaxSP     = 2
	DefaultMaxSQ     = 2
	DefaultMaxD      = 2
	DefaultMaxSD     = 1
	DefaultMaxModels = 94
	DefaultAlpha     = 0.05
)

// AutoOptions bounds the stepwise order search
type AutoOptions struct {
	Period        int     `json:"period" mapstructure:"period"`
	MaxP          int     `json:"max_p" mapstructure:"max_p"`
	MaxQ          int     `json:"max_q" mapstructure:"max_q"`
	MaxSP         int     `json:"max_sp" mapstructure:"max_sp"`
	MaxSQ         int     `json:"max_sq" mapstructure:"max_sq"`
	MaxD          int     `json:"max_d" mapstructure:"max_d"`
	MaxSD         int     `json:"max_sd" mapstructure:"max_sd"`
	MaxModels     int     `json:"max_models" mapstructure:"max_models"`
	Alpha         float64 `json:"alpha" mapstructure:"alpha"`
	Level         float64 `json:"level" mapstructure:"level"`
	MaxIterations int     `json:"max_iterations" mapstructure:"max_iterations"`
}

func NewDefaultAutoOptions() *AutoOptions {
	return &AutoOptions{
		Period:        DefaultPeriod,
		MaxP:          DefaultMaxP,
		MaxQ:          DefaultMaxQ,
		MaxSP:         DefaultMaxSP,
		MaxSQ:         DefaultMaxSQ,
		MaxD:          DefaultMaxD,
		MaxSD:         DefaultMaxSD,
		MaxModels:     DefaultMaxModels,
		Alpha:         DefaultAlpha,
		Level:         forecast.DefaultLevel,
		MaxIterations: DefaultMaxIterations,
	}
}

func (o *AutoOptions) Validate() (*AutoOptions, error) {
	if o == nil {
		o = NewDefaultAutoOptions()
	}
	for _, v := range []int{o.MaxP, o.MaxQ, o.MaxSP, o.MaxSQ, o.MaxD, o.MaxSD} {
		if v < 0 {
			return nil, ErrNegativeOrder
		}
	}
	if _, err := forecast.NormalQuantile(o.Level); err != nil {
		return nil, err
	}
	if o.Period < 2 {
		o.MaxSP, o.MaxSQ, o.MaxSD = 0, 0, 0
	}
	if o.MaxModels <= 0 {
		o.MaxModels = DefaultMaxModels
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		o.Alpha = DefaultAlpha
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o, nil
}

func (o *AutoOptions) allowed(ord Order) bool {
	return ord.P >= 0 && ord.P <= o.MaxP &&
		ord.Q >= 0 && ord.Q <= o.MaxQ &&
		ord.SP >= 0 && ord.SP <= o.MaxSP &&
		ord.SQ >= 0 && ord.SQ <= o.MaxSQ
}

// AutoFitter chooses the differencing orders with unit root tests and then walks the order
// space stepwise keeping the lowest AICc.
type AutoFitter struct {
	opt *AutoOptions
}

func NewAuto(opt *AutoOptions) (*AutoFitter, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &AutoFitter{opt: opt}, nil
}

func (a *AutoFitter) Name() string {
	return "auto_arima"
}

// SearchResult records the outcome of the order search
type SearchResult struct {
	Best      *Model
	Evaluated int
	Failed    int
}

func (a *AutoFitter) Fit(train *timedataset.TimeDataset) (forecast.Model, error) {
	freq, err := forecast.ValidateTraining(train, 10)
	if err != nil {
		return nil, forecast.NewFitError(a.Name(), err)
	}
	res, err := a.Search(train.Y)
	if err != nil {
		return nil, forecast.NewFitError(a.Name(), err)
	}
	m := res.Best
	m.level = a.opt.Level
	m.last = train.T[train.Len()-1]
	m.freq = freq
	return m, nil
}

// Differencing returns the regular and seasonal differencing orders for y
func (a *AutoFitter) Differencing(y []float64) (int, int) {
	sd := 0
	if a.opt.Period >= 2 && a.opt.MaxSD > 0 {
		sd = stats.NSDiffs(y, a.opt.Period, a.opt.MaxSD)
	}
	w := y
	if sd > 0 {
		w = stats.Diff(y, a.opt.Period, sd)
	}
	return stats.NDiffs(w, a.opt.Alpha, a.opt.MaxD), sd
}

// Search runs the stepwise search on y
func (a *AutoFitter) Search(y []float64) (*SearchResult, error) {
	d, sd := a.Differencing(y)
	slog.Debug("arima differencing", "d", d, "sd", sd, "period", a.opt.Period)

	period := 0
	if a.opt.Period >= 2 && (a.opt.MaxSP > 0 || a.opt.MaxSQ > 0 || sd > 0) {
		period = a.opt.Period
	}
	base := Order{D: d, SD: sd, Period: period}
	with := func(p, q, sp, sq int) Order {
		o := base
		o.P, o.Q, o.SP, o.SQ = p, q, sp, sq
		if period == 0 {
			o.SP, o.SQ = 0, 0
		}
		return o
	}

	res := &SearchResult{}
	visited := make(map[Order]bool)
	var errs []error
	try := func(o Order) bool {
		if visited[o] || !a.opt.allowed(o) || res.Evaluated >= a.opt.MaxModels {
			return false
		}
		visited[o] = true
		res.Evaluated++
		m, err := fitOrder(y, o, a.opt.MaxIterations)
		if err != nil {
			res.Failed++
			errs = append(errs, err)
			slog.Debug("unable to fit arima candidate", "order", o.String(), "error", err.Error())
			return false
		}
		slog.Debug("fit arima candidate", "order", o.String(), "aicc", m.ic.AICc)
		if res.Best == nil || m.ic.AICc < res.Best.ic.AICc {
			res.Best = m
			return true
		}
		return false
	}

	for _, o := range []Order{with(2, 2, 1, 1), with(0, 0, 0, 0), with(1, 0, 1, 0), with(0, 1, 0, 1)} {
		try(o)
	}

	for improved := res.Best != nil; improved; {
		improved = false
		for _, o := range neighbours(res.Best.order, period > 0) {
			if try(o) {
				improved = true
				break
			}
		}
	}

	if res.Best == nil {
		return nil, fmt.Errorf("%d candidates failed, %w: %w", res.Failed, ErrNoCandidate, errors.Join(errs...))
	}
	slog.Debug("selected arima order", "order", res.Best.order.String(), "evaluated", res.Evaluated)
	return res, nil
}

// neighbours varies one order by one or p and q together
func neighbours(o Order, seasonal bool) []Order {
	var res []Order
	step := func(dp, dq, dsp, dsq int) {
		n := o
		n.P += dp
		n.Q += dq
		n.SP += dsp
		n.SQ += dsq
		res = append(res, n)
	}
	if seasonal {
		step(0, 0, -1, 0)
		step(0, 0, 1, 0)
		step(0, 0, 0, -1)
		step(0, 0, 0, 1)
		step(0, 0, -1, -1)
		step(0, 0, 1, 1)
	}
	step(-1, 0, 0, 0)
	step(1, 0, 0, 0)
	step(0, -1, 0, 0)
	step(0, 1, 0, 0)
	step(-1, -1, 0, 0)
	step(1, 1, 0, 0)
	return res
}
