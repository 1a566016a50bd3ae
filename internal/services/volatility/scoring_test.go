package volatility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAbsoluteError(t *testing.T) {
	assert.InDelta(t, 1.0/3, MeanAbsoluteError([]float64{1, 2, 3}, []float64{1, 2, 4}), 1e-12)
	assert.Zero(t, MeanAbsoluteError([]float64{1, 2}, []float64{1, 2}))
}

func TestR2Score(t *testing.T) {
	actual := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1, R2Score(actual, actual), 1e-12)
	assert.InDelta(t, 0, R2Score(actual, []float64{2.5, 2.5, 2.5, 2.5}), 1e-12)
	assert.Less(t, R2Score(actual, []float64{4, 3, 2, 1}), 0.0)

	constant := []float64{2, 2, 2}
	assert.Equal(t, 1.0, R2Score(constant, []float64{2, 2, 2}))
	assert.Equal(t, 0.0, R2Score(constant, []float64{2, 3, 2}))
}
