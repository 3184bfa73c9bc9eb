// Package arima fits seasonal ARIMA (p,d,q)(P,D,Q)[m] models by conditional sum of squares and
// selects orders automatically with a stepwise search over information criteria.
package arima

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMaxIterations = 2000

	penalty = 1e30
)

var (
	ErrNegativeOrder  = errors.New("arima orders must be non-negative")
	ErrSeasonalPeriod = errors.New("seasonal arima terms need a period of at least 2")
	ErrNotStationary  = errors.New("estimated ar polynomial is not stationary")
	ErrNotInvertible  = errors.New("estimated ma polynomial is not invertible")
	ErrNoCandidate    = errors.New("no arima candidate could be fit")
	ErrTooManyDiffs   = errors.New("differencing leaves too few observations")
	ErrInvalidOrder   = errors.New("invalid arima order")
)

// Order is a seasonal ARIMA order (p,d,q)(P,D,Q)[m]
type Order struct {
	P      int `json:"p" mapstructure:"p"`
	D      int `json:"d" mapstructure:"d"`
	Q      int `json:"q" mapstructure:"q"`
	SP     int `json:"sp" mapstructure:"sp"`
	SD     int `json:"sd" mapstructure:"sd"`
	SQ     int `json:"sq" mapstructure:"sq"`
	Period int `json:"period" mapstructure:"period"`
}

func (o Order) Seasonal() bool {
	return o.SP+o.SD+o.SQ > 0
}

func (o Order) String() string {
	if !o.Seasonal() {
		return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.Period)
}

func (o Order) Validate() error {
	for _, v := range []int{o.P, o.D, o.Q, o.SP, o.SD, o.SQ} {
		if v < 0 {
			return fmt.Errorf("%s, %w", o, ErrNegativeOrder)
		}
	}
	if o.Seasonal() && o.Period < 2 {
		return fmt.Errorf("%s, %w", o, ErrSeasonalPeriod)
	}
	return nil
}

// includeMean reports whether a constant is estimated. Differenced models have none.
func (o Order) includeMean() bool {
	return o.D+o.SD == 0
}

// numParams counts the coefficients, the mean and the innovation variance
func (o Order) numParams() int {
	k := o.P + o.Q + o.SP + o.SQ + 1
	if o.includeMean() {
		k++
	}
	return k
}

func (o Order) differencedLen(n int) int {
	return n - o.D - o.SD*o.Period
}

// Options configures a fixed order fitter
type Options struct {
	Order         Order   `json:"order" mapstructure:"order"`
	Level         float64 `json:"level" mapstructure:"level"`
	MaxIterations int     `json:"max_iterations" mapstructure:"max_iterations"`
}

func NewDefaultOptions(order Order) *Options {
	return &Options{
		Order:         order,
		Level:         forecast.DefaultLevel,
		MaxIterations: DefaultMaxIterations,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions(Order{})
	}
	if err := o.Order.Validate(); err != nil {
		return nil, err
	}
	if _, err := forecast.NormalQuantile(o.Level); err != nil {
		return nil, err
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o, nil
}

// Fitter fits a single seasonal ARIMA order
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
	return f.opt.Order.String()
}

func (f *Fitter) Fit(train *timedataset.TimeDataset) (forecast.Model, error) {
	o := f.opt.Order
	freq, err := forecast.ValidateTraining(train, o.D+o.SD*o.Period+o.numParams()+2)
	if err != nil {
		return nil, forecast.NewFitError(f.Name(), err)
	}
	m, err := fitOrder(train.Y, o, f.opt.MaxIterations)
	if err != nil {
		return nil, forecast.NewFitError(f.Name(), err)
	}
	m.level = f.opt.Level
	m.last = train.T[train.Len()-1]
	m.freq = freq
	return m, nil
}

// Coefficients holds the estimated polynomial coefficients
type Coefficients struct {
	AR   []float64 `json:"ar"`
	MA   []float64 `json:"ma"`
	SAR  []float64 `json:"sar"`
	SMA  []float64 `json:"sma"`
	Mean float64   `json:"mean"`
}

// Model is a fitted seasonal ARIMA model
type Model struct {
	order  Order
	coef   Coefficients
	level  float64
	last   time.Time
	freq   time.Duration
	sigma2 float64
	ic     stats.InformationCriteria

	y         []float64
	innov     []float64
	fitted    []float64
	residuals []float64

	// full AR polynomial including differencing and the MA polynomial, both with a
	// leading 1 in powers of the backshift operator
	arFull []float64
	maFull []float64
}

func (m *Model) Name() string {
	return m.order.String()
}

func (m *Model) Order() Order {
	return m.order
}

func (m *Model) Coefficients() Coefficients {
	return m.coef
}

func (m *Model) Sigma2() float64 {
	return m.sigma2
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

// Forecast iterates the integrated recursion setting future innovations to zero. Standard
// errors come from the psi weights of the integrated model.
func (m *Model) Forecast(horizon int) (*forecast.Result, error) {
	if err := forecast.ValidateHorizon(horizon); err != nil {
		return nil, err
	}
	n := len(m.y)
	z := make([]float64, n+horizon)
	e := make([]float64, n+horizon)
	for i, v := range m.y {
		z[i] = v - m.coef.Mean
	}
	copy(e, m.innov)

	for t := n; t < n+horizon; t++ {
		v := 0.0
		for k := 1; k < len(m.arFull); k++ {
			if t-k >= 0 {
				v -= m.arFull[k] * z[t-k]
			}
		}
		for k := 1; k < len(m.maFull); k++ {
			if t-k >= 0 {
				v += m.maFull[k] * e[t-k]
			}
		}
		z[t] = v
	}

	psi := psiWeights(m.arFull, m.maFull, horizon)
	sigma := math.Sqrt(m.sigma2)
	point := make([]float64, horizon)
	se := make([]float64, horizon)
	cum := 0.0
	for h := 0; h < horizon; h++ {
		point[h] = z[n+h] + m.coef.Mean
		cum += psi[h] * psi[h]
		se[h] = sigma * math.Sqrt(cum)
	}
	return forecast.NewResult(m.Name(), m.level, forecast.Timeline(m.last, m.freq, horizon), point, se)
}

// fitOrder estimates a single order on y by minimizing the conditional sum of squares
func fitOrder(y []float64, o Order, maxIter int) (*Model, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	w := difference(y, o)
	start := o.P + o.SP*o.Period
	nEff := len(w) - start
	if nEff < o.numParams()+2 {
		return nil, fmt.Errorf("%s leaves %d usable points, %w", o, nEff, ErrTooManyDiffs)
	}

	mean := 0.0
	scale := 1.0
	if o.includeMean() {
		mean = stat.Mean(w, nil)
		scale = math.Max(stat.StdDev(w, nil), 1e-6)
	}

	objective := func(x []float64) float64 {
		c := unpack(x, o, mean, scale)
		if !stationary(c.AR) || !stationary(c.SAR) {
			return penalty
		}
		if !invertible(c.MA) || !invertible(c.SMA) {
			return penalty
		}
		sse, _ := css(w, c, o)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return penalty
		}
		return sse / float64(nEff)
	}

	nx := o.P + o.Q + o.SP + o.SQ
	if o.includeMean() {
		nx++
	}
	x := make([]float64, nx)
	if nx > 0 {
		problem := optimize.Problem{Func: objective}
		settings := &optimize.Settings{
			MajorIterations: maxIter,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Relative:   1e-10,
				Iterations: 100,
			},
		}
		result, err := optimize.Minimize(problem, x, settings, &optimize.NelderMead{SimplexSize: 0.1})
		if err != nil {
			return nil, fmt.Errorf("unable to optimize %s, %w: %w", o, forecast.ErrNonConvergence, err)
		}
		switch result.Status {
		case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
			return nil, fmt.Errorf("%s stopped with status %v, %w", o, result.Status, forecast.ErrNonConvergence)
		}
		if result.F >= penalty {
			return nil, fmt.Errorf("%s, %w", o, ErrNotStationary)
		}
		x = result.X
	}

	coef := unpack(x, o, mean, scale)
	if !stationary(coef.AR) || !stationary(coef.SAR) {
		return nil, fmt.Errorf("%s, %w", o, ErrNotStationary)
	}
	if !invertible(coef.MA) || !invertible(coef.SMA) {
		return nil, fmt.Errorf("%s, %w", o, ErrNotInvertible)
	}
	sse, e := css(w, coef, o)

	// map innovations of the differenced series back onto the original index
	offset := len(y) - len(w)
	innov := make([]float64, len(y))
	residuals := forecast.NaNs(len(y))
	fitted := forecast.NaNs(len(y))
	for t := start; t < len(w); t++ {
		innov[t+offset] = e[t]
		residuals[t+offset] = e[t]
		fitted[t+offset] = y[t+offset] - e[t]
	}

	arPoly := polyMul(seasonalPoly(coef.AR, 1, -1), seasonalPoly(coef.SAR, o.Period, -1))
	maPoly := polyMul(seasonalPoly(coef.MA, 1, 1), seasonalPoly(coef.SMA, o.Period, 1))
	yCopy := make([]float64, len(y))
	copy(yCopy, y)

	return &Model{
		order:     o,
		coef:      coef,
		sigma2:    sse / float64(nEff),
		ic:        stats.NewInformationCriteria(stats.GaussianLogLik(sse, nEff), nEff, o.numParams()),
		y:         yCopy,
		innov:     innov,
		fitted:    fitted,
		residuals: residuals,
		arFull:    polyMul(arPoly, diffPoly(o)),
		maFull:    maPoly,
	}, nil
}

func unpack(x []float64, o Order, mean, scale float64) Coefficients {
	i := 0
	next := func(k int) []float64 {
		v := make([]float64, k)
		copy(v, x[i:i+k])
		i += k
		return v
	}
	c := Coefficients{
		AR:  next(o.P),
		SAR: next(o.SP),
		MA:  next(o.Q),
		SMA: next(o.SQ),
	}
	if o.includeMean() {
		c.Mean = mean + x[i]*scale
	}
	return c
}

// css returns the conditional sum of squares of the innovations of w. Innovations before the
// largest ar lag are conditioned to zero.
func css(w []float64, c Coefficients, o Order) (float64, []float64) {
	ar := polyMul(seasonalPoly(c.AR, 1, -1), seasonalPoly(c.SAR, o.Period, -1))
	ma := polyMul(seasonalPoly(c.MA, 1, 1), seasonalPoly(c.SMA, o.Period, 1))
	start := len(ar) - 1

	e := make([]float64, len(w))
	sse := 0.0
	for t := start; t < len(w); t++ {
		v := w[t] - c.Mean
		for k := 1; k < len(ar); k++ {
			v += ar[k] * (w[t-k] - c.Mean)
		}
		for k := 1; k < len(ma) && t-k >= 0; k++ {
			v -= ma[k] * e[t-k]
		}
		e[t] = v
		sse += v * v
	}
	return sse, e
}

// difference applies d regular and D seasonal differences
func difference(y []float64, o Order) []float64 {
	w := stats.Diff(y, 1, o.D)
	if o.SD > 0 {
		w = stats.Diff(w, o.Period, o.SD)
	}
	return w
}

// seasonalPoly returns 1 + sign*(c_1 B^lag + c_2 B^2lag + ...)
func seasonalPoly(coef []float64, lag int, sign float64) []float64 {
	p := make([]float64, len(coef)*lag+1)
	p[0] = 1
	for i, c := range coef {
		p[(i+1)*lag] = sign * c
	}
	return p
}

func diffPoly(o Order) []float64 {
	p := []float64{1}
	for i := 0; i < o.D; i++ {
		p = polyMul(p, []float64{1, -1})
	}
	for i := 0; i < o.SD; i++ {
		p = polyMul(p, seasonalPoly([]float64{1}, o.Period, -1))
	}
	return p
}

func polyMul(a, b []float64) []float64 {
	res := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			res[i+j] += av * bv
		}
	}
	return res
}

// psiWeights expands ma(B)/ar(B) into its first h coefficients
func psiWeights(ar, ma []float64, h int) []float64 {
	psi := make([]float64, h)
	for j := 0; j < h; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for k := 1; k <= j && k < len(ar); k++ {
			v -= ar[k] * psi[j-k]
		}
		psi[j] = v
	}
	return psi
}

// stationary reports whether 1 - phi_1 B - ... - phi_p B^p has all roots outside the unit
// circle, i.e. all eigenvalues of its companion matrix lie inside it.
func stationary(phi []float64) bool {
	return rootsInside(phi)
}

// invertible applies the same check to 1 + theta_1 B + ... + theta_q B^q
func invertible(theta []float64) bool {
	neg := make([]float64, len(theta))
	for i, v := range theta {
		neg[i] = -v
	}
	return rootsInside(neg)
}

func rootsInside(coef []float64) bool {
	p := len(coef)
	for p > 0 && coef[p-1] == 0 {
		p--
	}
	switch p {
	case 0:
		return true
	case 1:
		return math.Abs(coef[0]) < 1
	}

	companion := mat.NewDense(p, p, nil)
	for j := 0; j < p; j++ {
		companion.Set(0, j, coef[j])
	}
	for i := 1; i < p; i++ {
		companion.Set(i, i-1, 1)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return false
	}
	for _, v := range eig.Values(nil) {
		if cmplx.Abs(v) >= 1 {
			return false
		}
	}
	return true
}

// ParseOrder reads "p,d,q" or "p,d,q,P,D,Q,m"
func ParseOrder(s string) (Order, error) {
	fields := strings.Split(s, ",")
	vals := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Order{}, fmt.Errorf("%q, %w", s, ErrInvalidOrder)
		}
		vals = append(vals, v)
	}

	var o Order
	switch len(vals) {
	case 3:
		o = Order{P: vals[0], D: vals[1], Q: vals[2]}
	case 7:
		o = Order{P: vals[0], D: vals[1], Q: vals[2], SP: vals[3], SD: vals[4], SQ: vals[5], Period: vals[6]}
	default:
		return Order{}, fmt.Errorf("%q, %w", s, ErrInvalidOrder)
	}
	return o, o.Validate()
}
