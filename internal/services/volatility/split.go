package volatility

import "fmt"

// Fold trains on rows [0, TrainEnd) and validates on [TrainEnd, TestEnd).
type Fold struct {
	TrainEnd int
	TestEnd  int
}

// TimeSeriesSplit cuts n time-ordered rows into k expanding-window folds with
// equal validation blocks at the tail. Rows are never reordered, so each fold
// validates strictly on data after its training rows.
func TimeSeriesSplit(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("time series split: need at least 2 folds, got %d", k)
	}
	testSize := n / (k + 1)
	if testSize < 1 {
		return nil, fmt.Errorf("time series split: %d rows cannot fill %d folds", n, k)
	}
	folds := make([]Fold, 0, k)
	for start := n - k*testSize; start < n; start += testSize {
		folds = append(folds, Fold{TrainEnd: start, TestEnd: start + testSize})
	}
	return folds, nil
}
