package stats

import (
	"fmt"
	"math"
)

// DecompositionResult holds a classical additive decomposition. Trend and remainder are NaN
// for the half window at either end.
type DecompositionResult struct {
	Period    int       `json:"period"`
	Trend     []float64 `json:"trend"`
	Seasonal  []float64 `json:"seasonal"`
	Remainder []float64 `json:"remainder"`
	Figure    []float64 `json:"figure"`
}

// Decompose runs a classical additive decomposition using a centered moving average of the
// period length (a 2xm average for even periods).
func Decompose(y []float64, period int) (*DecompositionResult, error) {
	if period < 2 {
		return nil, ErrInvalidPeriod
	}
	n := len(y)
	if n < 2*period {
		return nil, fmt.Errorf("decomposition needs at least %d points for period %d, got %d, %w", 2*period, period, n, ErrInsufficientData)
	}

	trend := centeredMovingAverage(y, period)

	figure := make([]float64, period)
	counts := make([]float64, period)
	for i := 0; i < n; i++ {
		if math.IsNaN(trend[i]) {
			continue
		}
		figure[i%period] += y[i] - trend[i]
		counts[i%period]++
	}
	mean := 0.0
	for k := range figure {
		if counts[k] > 0 {
			figure[k] /= counts[k]
		}
		mean += figure[k]
	}
	mean /= float64(period)
	for k := range figure {
		figure[k] -= mean
	}

	seasonal := make([]float64, n)
	remainder := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = figure[i%period]
		remainder[i] = y[i] - trend[i] - seasonal[i]
	}
	return &DecompositionResult{
		Period:    period,
		Trend:     trend,
		Seasonal:  seasonal,
		Remainder: remainder,
		Figure:    figure,
	}, nil
}

func centeredMovingAverage(y []float64, period int) []float64 {
	n := len(y)
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 1 {
			for j := i - half; j <= i+half; j++ {
				sum += y[j]
			}
			res[i] = sum / float64(period)
			continue
		}
		sum += 0.5 * y[i-half]
		sum += 0.5 * y[i+half]
		for j := i - half + 1; j < i+half; j++ {
			sum += y[j]
		}
		res[i] = sum / float64(period)
	}
	return res
}
