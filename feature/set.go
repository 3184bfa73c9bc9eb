package feature

import (
	"gonum.org/v1/gonum/mat"
)

// Set stores the values of each feature keyed by the string representation of the feature.
// Features keep their insertion order so the columns of Matrix are stable. Every feature
// holds m values; shorter inputs are zero padded and existing features are padded when a
// longer feature is added.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of features in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Rows returns the number of observations of every feature
func (s *Set) Rows() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores the feature data replacing any previous values for the same feature
func (s *Set) Set(f Feature, data []float64) *Set {
	if s == nil {
		s = NewSet()
	}

	if len(data) > s.m {
		for label, vals := range s.set {
			s.set[label] = pad(vals, len(data))
		}
		s.m = len(data)
	}

	name := f.String()
	if _, exists := s.set[name]; !exists {
		s.labels = append(s.labels, f)
	}
	vals := make([]float64, len(data))
	copy(vals, data)
	s.set[name] = pad(vals, s.m)
	return s
}

// Get returns the values of a feature and whether it exists
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	vals, exists := s.set[f.String()]
	return vals, exists
}

// Del removes a feature from the set
func (s *Set) Del(f Feature) *Set {
	if s == nil {
		return nil
	}
	name := f.String()
	if _, exists := s.set[name]; !exists {
		return s
	}
	delete(s.set, name)
	for i, label := range s.labels {
		if label.String() == name {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			break
		}
	}
	return s
}

// Update sets every feature of other onto the set
func (s *Set) Update(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, f := range other.labels {
		s = s.Set(f, other.set[f.String()])
	}
	return s
}

// Filter returns a new set with only the features of the given kinds
func (s *Set) Filter(kinds ...Kind) *Set {
	res := NewSet()
	if s == nil {
		return res
	}
	keep := make(map[Kind]bool)
	for _, k := range kinds {
		keep[k] = true
	}
	for _, f := range s.labels {
		if keep[f.Kind] {
			res.Set(f, s.set[f.String()])
		}
	}
	res.m = s.m
	return res
}

// RemoveZeroOnlyFeatures drops features whose values are all zero, e.g. a holiday that
// never falls within the training window.
func (s *Set) RemoveZeroOnlyFeatures() {
	if s == nil {
		return
	}
	for _, f := range s.Labels().Features() {
		vals := s.set[f.String()]
		allZero := true
		for _, v := range vals {
			if v != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			s.Del(f)
		}
	}
}

// Labels returns the features in insertion order
func (s *Set) Labels() *Labels {
	if s == nil {
		return NewLabels(nil)
	}
	labels := make([]Feature, len(s.labels))
	copy(labels, s.labels)
	return NewLabels(labels)
}

// Matrix returns an m x n matrix of the features in label order, optionally prefixed with a
// column of ones. Returns nil when there are no columns.
func (s *Set) Matrix(intercept bool) *mat.Dense {
	if s == nil {
		return nil
	}
	n := len(s.labels)
	if intercept {
		n++
	}
	if n == 0 || s.m == 0 {
		return nil
	}

	x := mat.NewDense(s.m, n, nil)
	col := 0
	if intercept {
		for i := 0; i < s.m; i++ {
			x.Set(i, 0, 1.0)
		}
		col++
	}
	for _, f := range s.labels {
		x.SetCol(col, s.set[f.String()])
		col++
	}
	return x
}

func pad(vals []float64, m int) []float64 {
	if len(vals) >= m {
		return vals
	}
	return append(vals, make([]float64, m-len(vals))...)
}
