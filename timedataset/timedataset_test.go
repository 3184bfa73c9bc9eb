package timedataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2013, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestNewUnivariateDataset(t *testing.T) {
	testData := map[string]struct {
		t        []time.Time
		y        []float64
		expected *TimeDataset
		err      error
	}{
		"no training data": {
			err: ErrNoTrainingData,
		},
		"length mismatch": {
			y:   []float64{1},
			err: ErrDatasetLenMismatch,
		},
		"non increasing time": {
			t:   []time.Time{day(2), day(1)},
			y:   []float64{1, 2},
			err: ErrNonMontonic,
		},
		"duplicate time": {
			t:   []time.Time{day(1), day(1)},
			y:   []float64{1, 2},
			err: ErrNonMontonic,
		},
		"valid": {
			t: []time.Time{day(1), day(2)},
			y: []float64{1, 2},
			expected: &TimeDataset{
				T: []time.Time{day(1), day(2)},
				Y: []float64{1, 2},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ds, err := NewUnivariateDataset(td.t, td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, ds)
		})
	}
}

func TestCopy(t *testing.T) {
	ds, err := NewUnivariateDataset([]time.Time{day(1), day(2)}, []float64{0, 1})
	require.NoError(t, err)

	nextDs := ds.Copy()
	require.Equal(t, ds, nextDs)

	ds.Y[0] = 10
	require.NotEqual(t, nextDs, ds)
}

func TestDropNan(t *testing.T) {
	testData := map[string]struct {
		tdset    *TimeDataset
		expected *TimeDataset
	}{
		"nil input for nan drop": {tdset: nil, expected: nil},
		"no data to drop": {
			tdset: &TimeDataset{},
			expected: &TimeDataset{
				T: []time.Time{},
				Y: []float64{},
			},
		},
		"data with NaNs": {
			tdset: &TimeDataset{
				T: []time.Time{day(1), day(2), day(3), day(4), day(5)},
				Y: []float64{math.NaN(), 2, 3, math.NaN(), 5},
			},
			expected: &TimeDataset{
				T: []time.Time{day(2), day(3), day(5)},
				Y: []float64{2, 3, 5},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.tdset.DropNan())
		})
	}
}

func TestSplit(t *testing.T) {
	ds, err := NewUnivariateDataset(GenerateDailyT(day(1), 10), GenerateTrendY(10, 0, 1))
	require.NoError(t, err)

	testData := map[string]struct {
		cutoff   time.Time
		trainLen int
		err      error
	}{
		"cutoff before start": {cutoff: day(1), err: ErrEmptySplit},
		"cutoff after end":    {cutoff: day(11), err: ErrEmptySplit},
		"middle":              {cutoff: day(8), trainLen: 7},
		"between points":      {cutoff: day(8).Add(12 * time.Hour), trainLen: 8},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			train, test, err := ds.Split(td.cutoff)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.trainLen, train.Len())
			assert.Equal(t, 10-td.trainLen, test.Len())
			assert.True(t, TimeSlice(train.T).EndTime().Before(TimeSlice(test.T).StartTime()))
			assert.False(t, TimeSlice(test.T).StartTime().Before(td.cutoff))
		})
	}
}

func TestSplitDisjointForAllCutoffs(t *testing.T) {
	ds, err := NewUnivariateDataset(GenerateDailyT(day(1), 30), GenerateConstY(30, 1))
	require.NoError(t, err)

	for i := 1; i < 30; i++ {
		train, test, err := ds.Split(ds.T[i])
		require.NoError(t, err)
		require.Equal(t, 30, train.Len()+test.Len())
		require.True(t, train.T[train.Len()-1].Before(test.T[0]))
	}
}

func TestHeadTail(t *testing.T) {
	ds, err := NewUnivariateDataset(GenerateDailyT(day(1), 5), GenerateTrendY(5, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1}, ds.Head(2).Y)
	assert.Equal(t, []float64{3, 4}, ds.Tail(2).Y)
	assert.Equal(t, 5, ds.Tail(10).Len())
	assert.Equal(t, 0, ds.Head(-1).Len())
}

func TestContiguous(t *testing.T) {
	ds, err := NewUnivariateDataset(GenerateDailyT(day(1), 5), GenerateConstY(5, 0))
	require.NoError(t, err)
	assert.NoError(t, ds.Contiguous(24*time.Hour))

	gap, err := NewUnivariateDataset([]time.Time{day(1), day(2), day(4)}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.ErrorIs(t, gap.Contiguous(24*time.Hour), ErrNotContiguous)

	var empty *TimeDataset
	assert.ErrorIs(t, empty.Contiguous(24*time.Hour), ErrNoTrainingData)
}
