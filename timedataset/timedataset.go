// Package timedataset holds the univariate daily series every forecasting model operates on
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrEmptySplit         = errors.New("split produced an empty partition")
	ErrNotContiguous      = errors.New("time index is not contiguous")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice. Times
// must be strictly increasing. The inputs are copied.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}, nil
}

// Len returns the number of observations
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// DropNan returns a copy of the dataset without any NaN observations
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	res := &TimeDataset{
		T: make([]time.Time, 0, len(td.T)),
		Y: make([]float64, 0, len(td.Y)),
	}
	for i := 0; i < len(td.T); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		res.T = append(res.T, td.T[i])
		res.Y = append(res.Y, td.Y[i])
	}
	return res
}

// Split partitions the dataset at a calendar cutoff. Train holds every point strictly before
// the cutoff and test every point at or after it, so the last training time is always before
// the first test time.
func (td *TimeDataset) Split(cutoff time.Time) (*TimeDataset, *TimeDataset, error) {
	if td == nil || len(td.T) == 0 {
		return nil, nil, ErrNoTrainingData
	}

	idx := len(td.T)
	for i, tPnt := range td.T {
		if !tPnt.Before(cutoff) {
			idx = i
			break
		}
	}
	if idx == 0 || idx == len(td.T) {
		return nil, nil, fmt.Errorf("cutoff %s outside of (%s, %s], %w",
			cutoff.Format(time.DateOnly),
			td.T[0].Format(time.DateOnly),
			td.T[len(td.T)-1].Format(time.DateOnly),
			ErrEmptySplit,
		)
	}

	train := &TimeDataset{T: td.T[:idx:idx], Y: td.Y[:idx:idx]}
	test := &TimeDataset{T: td.T[idx:], Y: td.Y[idx:]}
	return train.Copy(), test.Copy(), nil
}

// Head returns a copy of the first n observations
func (td *TimeDataset) Head(n int) *TimeDataset {
	if td == nil {
		return nil
	}
	if n > len(td.T) {
		n = len(td.T)
	}
	if n < 0 {
		n = 0
	}
	return (&TimeDataset{T: td.T[:n], Y: td.Y[:n]}).Copy()
}

// Tail returns a copy of the last n observations
func (td *TimeDataset) Tail(n int) *TimeDataset {
	if td == nil {
		return nil
	}
	if n > len(td.T) {
		n = len(td.T)
	}
	if n < 0 {
		n = 0
	}
	return (&TimeDataset{T: td.T[len(td.T)-n:], Y: td.Y[len(td.Y)-n:]}).Copy()
}

// Contiguous verifies every consecutive pair of times is exactly freq apart
func (td *TimeDataset) Contiguous(freq time.Duration) error {
	if td == nil || len(td.T) == 0 {
		return ErrNoTrainingData
	}
	for i := 1; i < len(td.T); i++ {
		if delta := td.T[i].Sub(td.T[i-1]); delta != freq {
			return fmt.Errorf("gap of %s between %s and %s, %w",
				delta, td.T[i-1].Format(time.DateOnly), td.T[i].Format(time.DateOnly), ErrNotContiguous)
		}
	}
	return nil
}
