package feature

// Labels is an ordered list of features matching the column order of a coefficient vector
type Labels struct {
	idx      map[string]int
	features []Feature
}

func NewLabels(features []Feature) *Labels {
	l := &Labels{
		idx:      make(map[string]int, len(features)),
		features: features,
	}
	for i, f := range features {
		l.idx[f.String()] = i
	}
	return l
}

func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.features)
}

// Features returns a copy of the features in column order
func (l *Labels) Features() []Feature {
	if l == nil {
		return nil
	}
	return append([]Feature(nil), l.features...)
}

// Index returns the column of the feature
func (l *Labels) Index(f Feature) (int, bool) {
	if l == nil {
		return -1, false
	}
	idx, exists := l.idx[f.String()]
	if !exists {
		return -1, false
	}
	return idx, true
}

// Kinds counts the features of each kind
func (l *Labels) Kinds() map[Kind]int {
	res := make(map[Kind]int)
	if l == nil {
		return res
	}
	for _, f := range l.features {
		res[f.Kind]++
	}
	return res
}
