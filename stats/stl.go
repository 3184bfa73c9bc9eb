package stats

import (
	"fmt"
	"math"
)

// STLOptions configures the loess windows and iteration counts of an STL decomposition.
// Windows are in number of points and are rounded up to the next odd value.
type STLOptions struct {
	SeasonalWindow   int `json:"seasonal_window"`
	TrendWindow      int `json:"trend_window"`
	LowPassWindow    int `json:"low_pass_window"`
	InnerIterations  int `json:"inner_iterations"`
	RobustIterations int `json:"robust_iterations"`
}

// NewDefaultSTLOptions returns the Cleveland et al. (1990) window choices for the period
// without robustness iterations.
func NewDefaultSTLOptions(period int) *STLOptions {
	seasonal := 7
	return &STLOptions{
		SeasonalWindow:   seasonal,
		TrendWindow:      nextOdd(int(math.Ceil(1.5 * float64(period) / (1.0 - 1.5/float64(seasonal))))),
		LowPassWindow:    nextOdd(period),
		InnerIterations:  2,
		RobustIterations: 0,
	}
}

// STLResult holds the additive components of y = trend + seasonal + remainder
type STLResult struct {
	Period    int       `json:"period"`
	Trend     []float64 `json:"trend"`
	Seasonal  []float64 `json:"seasonal"`
	Remainder []float64 `json:"remainder"`
	Weights   []float64 `json:"weights"`
}

// SeasonalStrength returns max(0, 1 - Var(R)/Var(S+R))
func (s *STLResult) SeasonalStrength() float64 {
	return strength(s.Seasonal, s.Remainder)
}

// TrendStrength returns max(0, 1 - Var(R)/Var(T+R))
func (s *STLResult) TrendStrength() float64 {
	return strength(s.Trend, s.Remainder)
}

func strength(comp, remainder []float64) float64 {
	sum := make([]float64, len(comp))
	for i := range comp {
		sum[i] = comp[i] + remainder[i]
	}
	varSum := Variance(sum)
	if varSum == 0 {
		return 0
	}
	return math.Max(0, 1-Variance(remainder)/varSum)
}

// STL performs the Seasonal-Trend decomposition using Loess. The input must cover at least
// two full periods.
func STL(y []float64, period int, opt *STLOptions) (*STLResult, error) {
	if period < 2 {
		return nil, ErrInvalidPeriod
	}
	n := len(y)
	if n < 2*period {
		return nil, fmt.Errorf("stl needs at least %d points for period %d, got %d, %w", 2*period, period, n, ErrInsufficientData)
	}
	if opt == nil {
		opt = NewDefaultSTLOptions(period)
	}
	ns := nextOdd(max(opt.SeasonalWindow, 3))
	nt := nextOdd(max(opt.TrendWindow, 3))
	nl := nextOdd(max(opt.LowPassWindow, period))
	inner := max(opt.InnerIterations, 1)

	trend := make([]float64, n)
	seasonal := make([]float64, n)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}

	for outer := 0; outer <= opt.RobustIterations; outer++ {
		for it := 0; it < inner; it++ {
			detrended := make([]float64, n)
			for i := range y {
				detrended[i] = y[i] - trend[i]
			}

			cycle := cycleSubseries(detrended, weights, period, ns)
			lowPass := movingAverage(movingAverage(movingAverage(cycle, period), period), 3)
			lowPass = loessSmooth(lowPass, nil, nl)

			deseasonal := make([]float64, n)
			for i := 0; i < n; i++ {
				seasonal[i] = cycle[period+i] - lowPass[i]
				deseasonal[i] = y[i] - seasonal[i]
			}
			trend = loessSmooth(deseasonal, weights, nt)
		}

		if outer < opt.RobustIterations {
			weights = robustnessWeights(y, trend, seasonal)
		}
	}

	remainder := make([]float64, n)
	for i := range y {
		remainder[i] = y[i] - trend[i] - seasonal[i]
	}
	return &STLResult{
		Period:    period,
		Trend:     trend,
		Seasonal:  seasonal,
		Remainder: remainder,
		Weights:   weights,
	}, nil
}

// cycleSubseries smooths every cycle-subseries and extends each by one point on both ends.
// The result has n + 2*period points.
func cycleSubseries(y, weights []float64, period, span int) []float64 {
	n := len(y)
	cycle := make([]float64, n+2*period)
	for k := 0; k < period; k++ {
		var sub, subW []float64
		for i := k; i < n; i += period {
			sub = append(sub, y[i])
			subW = append(subW, weights[i])
		}
		m := len(sub)
		for j := -1; j <= m; j++ {
			v, ok := loessAt(sub, subW, span, float64(j))
			if !ok {
				v = 0
				if j >= 0 && j < m {
					v = sub[j]
				}
			}
			idx := (j+1)*period + k
			if idx < len(cycle) {
				cycle[idx] = v
			}
		}
	}
	return cycle
}

// loessSmooth evaluates a degree 1 loess at every index of y
func loessSmooth(y, weights []float64, span int) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		v, ok := loessAt(y, weights, span, float64(i))
		if !ok {
			v = y[i]
		}
		out[i] = v
	}
	return out
}

// loessAt fits a locally weighted line over the span nearest points of y (positioned at
// 0..n-1) and evaluates it at x. x may lie outside of the data range.
func loessAt(y, weights []float64, span int, x float64) (float64, bool) {
	n := len(y)
	if n == 0 {
		return 0, false
	}
	q := min(span, n)
	lo := int(math.Round(x)) - q/2
	lo = max(0, min(lo, n-q))
	hi := lo + q - 1

	h := math.Max(x-float64(lo), float64(hi)-x)
	if span > n {
		h += float64(span-n) / 2.0
	}
	if h <= 0 {
		h = 1
	}

	var sw, swx, swy float64
	w := make([]float64, q)
	for i := lo; i <= hi; i++ {
		d := math.Abs(float64(i)-x) / h
		wi := 0.0
		if d < 1 {
			wi = math.Pow(1-d*d*d, 3)
		}
		if weights != nil {
			wi *= weights[i]
		}
		w[i-lo] = wi
		sw += wi
		swx += wi * float64(i)
		swy += wi * y[i]
	}
	if sw <= 0 {
		return 0, false
	}
	meanX := swx / sw
	meanY := swy / sw

	var sxx, sxy float64
	for i := lo; i <= hi; i++ {
		dx := float64(i) - meanX
		sxx += w[i-lo] * dx * dx
		sxy += w[i-lo] * dx * (y[i] - meanY)
	}
	if sxx <= 1e-12*sw {
		return meanY, true
	}
	return meanY + sxy/sxx*(x-meanX), true
}

func movingAverage(y []float64, window int) []float64 {
	if window > len(y) {
		return nil
	}
	out := make([]float64, len(y)-window+1)
	sum := 0.0
	for i := 0; i < window; i++ {
		sum += y[i]
	}
	out[0] = sum / float64(window)
	for i := window; i < len(y); i++ {
		sum += y[i] - y[i-window]
		out[i-window+1] = sum / float64(window)
	}
	return out
}

func robustnessWeights(y, trend, seasonal []float64) []float64 {
	n := len(y)
	absResid := make([]float64, n)
	for i := range y {
		absResid[i] = math.Abs(y[i] - trend[i] - seasonal[i])
	}
	h := 6 * Median(absResid)
	weights := make([]float64, n)
	for i, r := range absResid {
		if h == 0 {
			weights[i] = 1
			continue
		}
		u := r / h
		if u < 1 {
			weights[i] = (1 - u*u) * (1 - u*u)
		}
	}
	return weights
}

func nextOdd(v int) int {
	if v%2 == 0 {
		return v + 1
	}
	return v
}
