package msgloop

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPSquareQuantileMedianUniform(t *testing.T) {
	ps := newPSquareQuantile(0.5)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		ps.Update(r.Float64() * 100)
	}
	// Median of a uniform[0,100) sample should land close to 50.
	assert.InDelta(t, 50.0, ps.Quantile(), 3.0)
	assert.Equal(t, 10000, ps.Count())
}

func TestPSquareQuantileSmallSampleExact(t *testing.T) {
	ps := newPSquareQuantile(0.5)
	ps.Update(3)
	ps.Update(1)
	ps.Update(2)
	// Fewer than 5 samples: exact sorted-index path, not the P^2 estimator.
	assert.Equal(t, 2.0, ps.Quantile())
	assert.Equal(t, 3.0, ps.Max())
}

func TestPSquareMultiQuantileTracksMeanAndMax(t *testing.T) {
	m := newPSquareMultiQuantile(0.5, 0.9, 0.99)
	for _, v := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		m.Update(v)
	}
	assert.Equal(t, 10, m.Count())
	assert.InDelta(t, 5.5, m.Mean(), 1e-9)
	assert.Equal(t, 10.0, m.Max())
	// Index out of range degrades to zero rather than panicking.
	assert.Equal(t, 0.0, m.Quantile(-1))
	assert.Equal(t, 0.0, m.Quantile(3))
}
