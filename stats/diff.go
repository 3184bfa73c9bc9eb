package stats

import (
	"log/slog"
)

// SeasonalStrengthThreshold is the strength at or above which a seasonal difference is taken
const SeasonalStrengthThreshold = 0.64

// Diff applies lagged differencing the given number of times. Each pass shortens the output
// by lag points.
func Diff(y []float64, lag, differences int) []float64 {
	if lag < 1 {
		lag = 1
	}
	res := y
	for d := 0; d < differences; d++ {
		if len(res) <= lag {
			return nil
		}
		next := make([]float64, len(res)-lag)
		for i := lag; i < len(res); i++ {
			next[i-lag] = res[i] - res[i-lag]
		}
		res = next
	}
	if differences == 0 {
		res = make([]float64, len(y))
		copy(res, y)
	}
	return res
}

// SeasonalDiff applies a single difference at the seasonal period
func SeasonalDiff(y []float64, period int) []float64 {
	return Diff(y, period, 1)
}

// NDiffs returns the number of first differences, up to maxD, needed for the series to pass
// a level KPSS test at the alpha level.
func NDiffs(y []float64, alpha float64, maxD int) int {
	if alpha <= 0 {
		alpha = 0.05
	}
	current := y
	for d := 0; d < maxD; d++ {
		res, err := KPSS(current, KPSSLevel, 0)
		if err != nil {
			slog.Debug("unable to run kpss when choosing differences", "differences", d, "error", err.Error())
			return d
		}
		if res.Stationary(alpha) {
			return d
		}
		current = Diff(current, 1, 1)
	}
	return maxD
}

// NSDiffs returns the number of seasonal differences, up to maxD, using the STL seasonal
// strength threshold of 0.64.
func NSDiffs(y []float64, period, maxD int) int {
	if period < 2 {
		return 0
	}
	current := y
	for d := 0; d < maxD; d++ {
		strength, err := SeasonalStrength(current, period)
		if err != nil || strength < SeasonalStrengthThreshold {
			return d
		}
		current = SeasonalDiff(current, period)
	}
	return maxD
}

// SeasonalStrength computes the STL based seasonal strength of the series
func SeasonalStrength(y []float64, period int) (float64, error) {
	res, err := STL(y, period, nil)
	if err != nil {
		return 0, err
	}
	return res.SeasonalStrength(), nil
}
