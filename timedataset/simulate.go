package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateDailyT returns n consecutive days starting at start
func GenerateDailyT(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	ct := TruncateDay(start)
	for i := 0; i < n; i++ {
		t = append(t, ct.AddDate(0, 0, i))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) Scale(c float64) Series {
	floats.Scale(c, s)
	return s
}

// Mul multiplies each value element-wise with src
func (s Series) Mul(src Series) Series {
	floats.Mul(s, src)
	return s
}

func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if (t[i].After(start) || t[i].Equal(start)) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GeneratePeriodicY repeats pattern until n values are produced
func GeneratePeriodicY(n int, pattern []float64) Series {
	y := make([]float64, n)
	if len(pattern) == 0 {
		return Series(y)
	}
	for i := 0; i < n; i++ {
		y[i] = pattern[i%len(pattern)]
	}
	return Series(y)
}

// GenerateTrendY produces bias + slope*i
func GenerateTrendY(n int, bias, slope float64) Series {
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = bias + slope*float64(i)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise draws n gaussian samples with the given scale from a seeded source so tests
// stay deterministic.
func GenerateNoise(n int, scale float64, seed uint64) Series {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, r.NormFloat64()*scale)
	}
	return Series(y)
}

// GenerateAR1 produces a first order autoregressive series around mean with coefficient phi
func GenerateAR1(n int, mean, phi, scale float64, seed uint64) Series {
	noise := GenerateNoise(n, scale, seed)
	y := make([]float64, n)
	prev := 0.0
	for i := 0; i < n; i++ {
		prev = phi*prev + noise[i]
		y[i] = mean + prev
	}
	return Series(y)
}
