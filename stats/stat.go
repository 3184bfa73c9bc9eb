package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientData = errors.New("insufficient data points")
	ErrInvalidPeriod    = errors.New("period must be greater than 1")
	ErrInvalidLag       = errors.New("lag must be positive")
)

// DetectOutliers returns the indices of the points that fall outside of the percentile bounds
// widened by the tukey factor times the inner range.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	if len(y) == 0 {
		return nil
	}
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, len(y))
	copy(yCopy, y)
	sort.Float64s(yCopy)

	lower := stat.Quantile(lowerPerc, stat.Empirical, yCopy, nil)
	upper := stat.Quantile(upperPerc, stat.Empirical, yCopy, nil)
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// Median returns the median of the input without modifying it
func Median(y []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	yCopy := make([]float64, len(y))
	copy(yCopy, y)
	sort.Float64s(yCopy)
	n := len(yCopy)
	if n%2 == 1 {
		return yCopy[n/2]
	}
	return (yCopy[n/2-1] + yCopy[n/2]) / 2.0
}

// Variance returns the sample variance ignoring NaNs
func Variance(y []float64) float64 {
	valid := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return 0
	}
	return stat.Variance(valid, nil)
}

// Sum of squares of the input
func SumSquares(y []float64) float64 {
	return floats.Dot(y, y)
}
