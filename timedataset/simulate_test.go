package timedataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDailyT(t *testing.T) {
	numPnts := 7
	res := GenerateDailyT(day(1).Add(13), numPnts)
	assert.Len(t, res, numPnts)

	assert.Equal(t, day(1), res[0])
	assert.Equal(t, day(7), res[numPnts-1])
}

func TestSeries(t *testing.T) {
	numPnts := 7
	s := GenerateConstY(numPnts, 1)

	res := s.Add(GenerateConstY(numPnts, 2))
	require.Equal(t, Series{3, 3, 3, 3, 3, 3, 3}, res)

	tSeries := GenerateDailyT(day(1), numPnts)
	s.SetConst(tSeries, 2.0, day(3), day(5))
	assert.Equal(t, Series{3, 3, 2, 2, 3, 3, 3}, s)

	s.Mul(GeneratePeriodicY(numPnts, []float64{1, 0})).Scale(2)
	assert.Equal(t, Series{6, 0, 4, 0, 6, 0, 6}, s)
}

func TestGenerateNoiseDeterministic(t *testing.T) {
	assert.Equal(t, GenerateNoise(10, 1, 42), GenerateNoise(10, 1, 42))
	assert.NotEqual(t, GenerateNoise(10, 1, 42), GenerateNoise(10, 1, 43))
}
