package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// KPSSRegression selects the deterministic component removed before testing
type KPSSRegression string

const (
	// KPSSLevel tests for level stationarity
	KPSSLevel KPSSRegression = "c"
	// KPSSTrend tests for trend stationarity
	KPSSTrend KPSSRegression = "ct"
)

var ErrUnknownRegression = errors.New("unknown kpss regression")

// critical values at 10%, 5%, 2.5% and 1% from Kwiatkowski et al. (1992)
var (
	kpssPValues    = []float64{0.10, 0.05, 0.025, 0.01}
	kpssLevelCrit  = []float64{0.347, 0.463, 0.574, 0.739}
	kpssTrendCrit  = []float64{0.119, 0.146, 0.176, 0.216}
	kpssMinimumObs = 10
)

// KPSSResult holds the outcome of a KPSS test. The null hypothesis is stationarity.
type KPSSResult struct {
	Statistic  float64        `json:"statistic"`
	PValue     float64        `json:"p_value"`
	Lags       int            `json:"lags"`
	Regression KPSSRegression `json:"regression"`
}

// Stationary reports whether the null of stationarity is kept at the alpha level
func (k KPSSResult) Stationary(alpha float64) bool {
	return k.PValue >= alpha
}

// KPSS runs the Kwiatkowski-Phillips-Schmidt-Shin test. A non-positive lags value uses
// the default bandwidth of ceil(12*(n/100)^(1/4)). The p-value is interpolated from the
// critical value table and clipped to [0.01, 0.10].
func KPSS(y []float64, regression KPSSRegression, lags int) (*KPSSResult, error) {
	n := len(y)
	if n < kpssMinimumObs {
		return nil, fmt.Errorf("kpss needs at least %d points, got %d, %w", kpssMinimumObs, n, ErrInsufficientData)
	}

	var crit []float64
	resid := make([]float64, n)
	switch regression {
	case KPSSLevel, "":
		regression = KPSSLevel
		crit = kpssLevelCrit
		mean := stat.Mean(y, nil)
		for i, v := range y {
			resid[i] = v - mean
		}
	case KPSSTrend:
		crit = kpssTrendCrit
		x := make([]float64, n)
		for i := range x {
			x[i] = float64(i)
		}
		alpha, beta := stat.LinearRegression(x, y, nil, false)
		for i, v := range y {
			resid[i] = v - alpha - beta*x[i]
		}
	default:
		return nil, fmt.Errorf("%q, %w", regression, ErrUnknownRegression)
	}

	if lags <= 0 {
		lags = int(math.Ceil(12 * math.Pow(float64(n)/100.0, 0.25)))
	}
	if lags >= n {
		lags = n - 1
	}

	// Newey-West long run variance with Bartlett weights
	s2 := SumSquares(resid) / float64(n)
	for l := 1; l <= lags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += resid[i] * resid[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1.0 - float64(l)/float64(lags+1)) * cov
	}

	statistic := 0.0
	if s2 > 0 {
		cumSum := 0.0
		eta := 0.0
		for _, r := range resid {
			cumSum += r
			eta += cumSum * cumSum
		}
		statistic = eta / (float64(n) * float64(n) * s2)
	}

	return &KPSSResult{
		Statistic:  statistic,
		PValue:     kpssPValue(statistic, crit),
		Lags:       lags,
		Regression: regression,
	}, nil
}

func kpssPValue(statistic float64, crit []float64) float64 {
	if statistic <= crit[0] {
		return kpssPValues[0]
	}
	last := len(crit) - 1
	if statistic >= crit[last] {
		return kpssPValues[last]
	}
	for i := 1; i <= last; i++ {
		if statistic <= crit[i] {
			frac := (statistic - crit[i-1]) / (crit[i] - crit[i-1])
			return kpssPValues[i-1] + frac*(kpssPValues[i]-kpssPValues[i-1])
		}
	}
	return kpssPValues[last]
}
