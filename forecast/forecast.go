// Package forecast defines the contract every forecasting model implements: a Fitter takes a
// contiguous training series and returns a Model that produces a horizon of point forecasts
// with prediction intervals.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecast/timedataset"
	"gonum.org/v1/gonum/stat/distuv"
)

const DefaultLevel = 0.95

var (
	ErrNonConvergence           = errors.New("model did not converge")
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrNonFiniteTrainingData    = errors.New("training data contains non-finite values")
	ErrInvalidHorizon           = errors.New("horizon must be positive")
	ErrInvalidLevel             = errors.New("interval level must be within (0, 1)")
	ErrInvalidPeriod            = errors.New("seasonal period must be positive")
	ErrResultLenMismatch        = errors.New("forecast components have different lengths")
)

// Fitter fits a single model family to a training series
type Fitter interface {
	Name() string
	Fit(train *timedataset.TimeDataset) (Model, error)
}

// Model is a fitted model. Fitted and Residuals align with the training series and hold
// NaN where the model produces no in-sample estimate.
type Model interface {
	Name() string
	Fitted() []float64
	Residuals() []float64
	Forecast(horizon int) (*Result, error)
}

// Result is a horizon of forecasts keyed by date. Lower and Upper bound the prediction
// interval at Level.
type Result struct {
	Model    string      `json:"model"`
	Level    float64     `json:"level"`
	T        []time.Time `json:"time"`
	Forecast []float64   `json:"forecast"`
	Lower    []float64   `json:"lower"`
	Upper    []float64   `json:"upper"`
}

// NewResult builds a result from point forecasts and their standard errors using normal
// prediction intervals at the given level.
func NewResult(model string, level float64, t []time.Time, point, se []float64) (*Result, error) {
	if len(t) != len(point) || len(point) != len(se) {
		return nil, fmt.Errorf("got %d times, %d forecasts and %d standard errors, %w",
			len(t), len(point), len(se), ErrResultLenMismatch)
	}
	z, err := NormalQuantile(level)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Model:    model,
		Level:    level,
		T:        make([]time.Time, len(t)),
		Forecast: make([]float64, len(point)),
		Lower:    make([]float64, len(point)),
		Upper:    make([]float64, len(point)),
	}
	copy(res.T, t)
	copy(res.Forecast, point)
	for i := range point {
		res.Lower[i] = point[i] - z*se[i]
		res.Upper[i] = point[i] + z*se[i]
	}
	return res, nil
}

// Len returns the number of forecast points
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}

// Dataset returns the point forecasts as a time dataset
func (r *Result) Dataset() (*timedataset.TimeDataset, error) {
	return timedataset.NewUnivariateDataset(r.T, r.Forecast)
}

// FitError wraps the reason a model could not be fit
type FitError struct {
	Model string
	Err   error
}

// NewFitError wraps err unless it is nil or already a FitError
func NewFitError(model string, err error) error {
	if err == nil {
		return nil
	}
	var fitErr *FitError
	if errors.As(err, &fitErr) {
		return err
	}
	return &FitError{Model: model, Err: err}
}

func (e *FitError) Error() string {
	return fmt.Sprintf("unable to fit %s model, %v", e.Model, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// NormalQuantile returns the two sided standard normal quantile for the interval level
func NormalQuantile(level float64) (float64, error) {
	if level <= 0 || level >= 1 || math.IsNaN(level) {
		return 0, fmt.Errorf("got %.3f, %w", level, ErrInvalidLevel)
	}
	return distuv.UnitNormal.Quantile(0.5 + level/2.0), nil
}

// Timeline returns horizon times after last spaced freq apart
func Timeline(last time.Time, freq time.Duration, horizon int) []time.Time {
	t := make([]time.Time, horizon)
	for i := 0; i < horizon; i++ {
		t[i] = last.Add(time.Duration(i+1) * freq)
	}
	return t
}

// ValidateTraining checks the training series has at least minLen finite values on a
// contiguous time index and returns the index frequency.
func ValidateTraining(train *timedataset.TimeDataset, minLen int) (time.Duration, error) {
	if train == nil || train.Len() == 0 {
		return 0, timedataset.ErrNoTrainingData
	}
	if train.Len() < minLen {
		return 0, fmt.Errorf("need at least %d points, got %d, %w", minLen, train.Len(), ErrInsufficientTrainingData)
	}
	for i, v := range train.Y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("value %v at %s, %w", v, train.T[i].Format(time.DateOnly), ErrNonFiniteTrainingData)
		}
	}
	if train.Len() == 1 {
		return 24 * time.Hour, nil
	}
	freq, err := timedataset.TimeSlice(train.T).EstimateFreq()
	if err != nil {
		return 0, err
	}
	if err := train.Contiguous(freq); err != nil {
		return 0, err
	}
	return freq, nil
}

// ValidateHorizon rejects non-positive horizons
func ValidateHorizon(horizon int) error {
	if horizon <= 0 {
		return fmt.Errorf("got %d, %w", horizon, ErrInvalidHorizon)
	}
	return nil
}

// Sigma returns the residual standard deviation sqrt(sum(e^2)/(n-k)) over the finite
// residuals. Falls back to dividing by n when n <= k.
func Sigma(residuals []float64, k int) float64 {
	sse := 0.0
	n := 0
	for _, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		sse += r * r
		n++
	}
	if n == 0 {
		return 0
	}
	dof := n - k
	if dof <= 0 {
		dof = n
	}
	return math.Sqrt(sse / float64(dof))
}

// Residuals returns y - fitted, propagating NaN fitted values
func Residuals(y, fitted []float64) []float64 {
	res := make([]float64, len(y))
	for i := range y {
		res[i] = y[i] - fitted[i]
	}
	return res
}

// NaNs returns a slice of n NaN values
func NaNs(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	return res
}
