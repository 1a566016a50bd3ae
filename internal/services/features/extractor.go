package features

import (
	"fmt"
	"math"

	"FinSight/internal/domain/models"
)

// Compute derives one FeatureVector per day whose indicator windows are all full.
// Bars must be validated (strictly increasing dates, positive closes).
func Compute(bars []models.PriceBar) ([]models.FeatureVector, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("%w: have %d bars, need at least %d", models.ErrInsufficientHistory, len(bars), MinBars)
	}
	if err := models.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range bars {
		closes[i], highs[i], lows[i] = b.Close, b.High, b.Low
	}

	ret := pctChange(closes)
	emaFast := ewm(closes, spanAlpha(fastSpan))
	emaSlow := ewm(closes, spanAlpha(slowSpan))
	macd := make([]float64, n)
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	closeStd := rollingStd(closes, bollingerWindow)
	bbWidth := make([]float64, n)
	for i := range bbWidth {
		// (sma + 2*std) - (sma - 2*std)
		bbWidth[i] = 4 * closeStd[i]
	}

	columns := [][]float64{
		rollingStd(ret, volWindow),
		ewm(trueRange(highs, lows, closes), 1/float64(wilderPeriod)),
		rollingMean(ret, meanWindow),
		ret,
		rsi(closes),
		macd,
		ewm(macd, spanAlpha(signalSpan)),
		bbWidth,
		shift(ret, 1),
		shift(ret, 2),
		shift(ret, 3),
		shift(ret, 5),
		rollingStd(ret, hvWindows[0]),
		rollingStd(ret, hvWindows[1]),
		rollingStd(ret, hvWindows[2]),
	}

	out := make([]models.FeatureVector, 0, n-MinBars+1)
	for t := 0; t < n; t++ {
		vals := make([]float64, len(columns))
		complete := true
		for j, col := range columns {
			v := col[t]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
			vals[j] = v
		}
		if !complete {
			continue
		}
		out = append(out, models.FeatureVector{Date: bars[t].Date, Values: vals, Order: order})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no day has full indicator coverage", models.ErrInsufficientHistory)
	}
	return out, nil
}

// BuildExamples pairs each vector with the next day's RollingVolatility. The last
// vector has no target yet and is returned separately as the prediction input.
func BuildExamples(vectors []models.FeatureVector) ([]models.TrainingExample, models.FeatureVector, error) {
	if len(vectors) == 0 {
		return nil, models.FeatureVector{}, fmt.Errorf("%w: no feature vectors", models.ErrInsufficientHistory)
	}
	idx := indexOf(RollingVolatility)
	examples := make([]models.TrainingExample, 0, len(vectors)-1)
	for t := 0; t+1 < len(vectors); t++ {
		examples = append(examples, models.TrainingExample{
			Features: vectors[t],
			Target:   vectors[t+1].Values[idx],
		})
	}
	return examples, vectors[len(vectors)-1], nil
}

func indexOf(name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}
