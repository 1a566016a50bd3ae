package volatility

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MeanAbsoluteError of predictions against actual values.
func MeanAbsoluteError(actual, predicted []float64) float64 {
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// R2Score is the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func R2Score(actual, predicted []float64) float64 {
	mean := stat.Mean(actual, nil)
	var ssTot, ssRes float64
	for i, a := range actual {
		ssTot += (a - mean) * (a - mean)
		ssRes += (a - predicted[i]) * (a - predicted[i])
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}
