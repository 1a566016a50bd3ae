package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ewm is an exponentially weighted mean seeded with the first value:
// y_0 = x_0, y_t = (1-alpha)*y_{t-1} + alpha*x_t.
func ewm(xs []float64, alpha float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if i == 0 {
			out[i] = x
			continue
		}
		out[i] = (1-alpha)*out[i-1] + alpha*x
	}
	return out
}

// spanAlpha converts an EMA span to its smoothing factor.
func spanAlpha(span int) float64 { return 2 / (float64(span) + 1) }

// pctChange returns C_t/C_{t-1} - 1; index 0 is NaN.
func pctChange(closes []float64) []float64 {
	out := make([]float64, len(closes))
	out[0] = math.NaN()
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

// rollingStd is the sample standard deviation of the full window ending at each
// index. Windows that are short or contain NaN yield NaN.
func rollingStd(xs []float64, window int) []float64 {
	return rolling(xs, window, func(w []float64) float64 { return stat.StdDev(w, nil) })
}

// rollingMean is the mean of the full window ending at each index.
func rollingMean(xs []float64, window int) []float64 {
	return rolling(xs, window, func(w []float64) float64 { return stat.Mean(w, nil) })
}

func rolling(xs []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		w := xs[i+1-window : i+1]
		if hasNaN(w) {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(w)
	}
	return out
}

// shift moves values forward by lag positions, padding with NaN.
func shift(xs []float64, lag int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = xs[i-lag]
	}
	return out
}

// rsi uses Wilder smoothing of gains and losses. The first day has no change
// and contributes zero to both.
func rsi(closes []float64) []float64 {
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}
	alpha := 1 / float64(wilderPeriod)
	avgGain := ewm(gains, alpha)
	avgLoss := ewm(losses, alpha)
	out := make([]float64, len(closes))
	for i := range out {
		rs := avgGain[i] / (avgLoss[i] + rsiEpsilon)
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// trueRange of day 0 is its high-low range.
func trueRange(high, low, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
