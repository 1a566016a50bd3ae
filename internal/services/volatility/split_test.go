package volatility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSeriesSplit(t *testing.T) {
	folds, err := TimeSeriesSplit(20, 5)
	require.NoError(t, err)
	assert.Equal(t, []Fold{
		{TrainEnd: 5, TestEnd: 8},
		{TrainEnd: 8, TestEnd: 11},
		{TrainEnd: 11, TestEnd: 14},
		{TrainEnd: 14, TestEnd: 17},
		{TrainEnd: 17, TestEnd: 20},
	}, folds)
}

func TestTimeSeriesSplitValidatesAfterTraining(t *testing.T) {
	folds, err := TimeSeriesSplit(103, 5)
	require.NoError(t, err)
	require.Len(t, folds, 5)
	for i, f := range folds {
		assert.Greater(t, f.TrainEnd, 0)
		assert.Equal(t, 17, f.TestEnd-f.TrainEnd, "fold %d", i)
		if i > 0 {
			assert.Equal(t, folds[i-1].TestEnd, f.TrainEnd)
		}
	}
	assert.Equal(t, 103, folds[len(folds)-1].TestEnd)
}

func TestTimeSeriesSplitErrors(t *testing.T) {
	_, err := TimeSeriesSplit(5, 5)
	assert.Error(t, err)

	_, err = TimeSeriesSplit(100, 1)
	assert.Error(t, err)
}
