package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ACF calculates the sample autocorrelation for lags 0 to maxLag. Returns nil for a constant
// or empty series.
func ACF(y []float64, maxLag int) []float64 {
	n := len(y)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(y, nil)
	denom := 0.0
	for _, v := range y {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (y[i] - mean) * (y[i-k] - mean)
		}
		acf[k] = sum / denom
	}
	return acf
}

// PACF calculates the partial autocorrelation for lags 0 to maxLag with the Durbin-Levinson
// recursion. Lag 0 is always 1.
func PACF(y []float64, maxLag int) []float64 {
	if maxLag >= len(y) {
		maxLag = len(y) - 1
	}
	if maxLag < 1 {
		return nil
	}
	acf := ACF(y, maxLag)
	if acf == nil {
		return nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1.0

	prev := make([]float64, maxLag+1)
	curr := make([]float64, maxLag+1)
	prev[1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= prev[j] * acf[k-j]
			den -= prev[j] * acf[j]
		}
		if den == 0 {
			break
		}
		curr[k] = num / den
		for j := 1; j < k; j++ {
			curr[j] = prev[j] - curr[k]*prev[k-j]
		}
		pacf[k] = curr[k]
		prev, curr = curr, prev
	}
	return pacf
}

// ACFResult holds correlation values by lag along with the 95% confidence bound
type ACFResult struct {
	Lags       []int     `json:"lags"`
	Values     []float64 `json:"values"`
	ConfBounds float64   `json:"conf_bounds"`
}

// ACFWithConfidence returns the autocorrelation with ±1.96/sqrt(n) bounds
func ACFWithConfidence(y []float64, maxLag int) *ACFResult {
	return withConfidence(ACF(y, maxLag), len(y))
}

// PACFWithConfidence returns the partial autocorrelation with ±1.96/sqrt(n) bounds
func PACFWithConfidence(y []float64, maxLag int) *ACFResult {
	return withConfidence(PACF(y, maxLag), len(y))
}

func withConfidence(values []float64, n int) *ACFResult {
	if values == nil {
		return nil
	}
	lags := make([]int, len(values))
	for i := range lags {
		lags[i] = i
	}
	return &ACFResult{
		Lags:       lags,
		Values:     values,
		ConfBounds: 1.96 / math.Sqrt(float64(n)),
	}
}

// SignificantLags returns the lags, skipping lag 0, where the magnitude exceeds the bound
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}

// DominantLag returns the lag in [minLag, maxLag] with the largest autocorrelation. Returns
// -1 if no lag in the window is available.
func DominantLag(acf []float64, minLag, maxLag int) int {
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(acf) {
		maxLag = len(acf) - 1
	}
	best := -1
	bestVal := math.Inf(-1)
	for k := minLag; k <= maxLag; k++ {
		if acf[k] > bestVal {
			bestVal = acf[k]
			best = k
		}
	}
	return best
}
