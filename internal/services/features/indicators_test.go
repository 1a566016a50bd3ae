package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEWMSeededWithFirstValue(t *testing.T) {
	got := ewm([]float64{10, 20, 20}, 0.5)
	assert.Equal(t, []float64{10, 15, 17.5}, got)
}

func TestRollingStdNeedsFullWindow(t *testing.T) {
	got := rollingStd([]float64{math.NaN(), 1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
	assert.InDelta(t, 1.0, got[3], 1e-12)
	assert.InDelta(t, 1.0, got[4], 1e-12)
}

func TestShift(t *testing.T) {
	got := shift([]float64{1, 2, 3}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 1.0, got[2])
}

func TestTrueRangeUsesPreviousClose(t *testing.T) {
	high := []float64{11, 12}
	low := []float64{9, 11.5}
	closes := []float64{10, 12}
	assert.Equal(t, []float64{2, 2}, trueRange(high, low, closes))
}

func TestRSIBounds(t *testing.T) {
	up := rsi([]float64{1, 2, 3, 4, 5})
	assert.InDelta(t, 100.0, up[4], 1e-6)
	down := rsi([]float64{5, 4, 3, 2, 1})
	assert.InDelta(t, 0.0, down[4], 1e-6)
}
