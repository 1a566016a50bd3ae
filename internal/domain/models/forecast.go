package models

import (
	"encoding/json"
	"time"
)

// FeatureVector holds the engineered features of one trading day in schema order.
type FeatureVector struct {
	Date   time.Time
	Values []float64
	Order  []string
}

// Value returns the named feature.
func (v FeatureVector) Value(name string) (float64, bool) {
	for i, n := range v.Order {
		if n == name && i < len(v.Values) {
			return v.Values[i], true
		}
	}
	return 0, false
}

// TrainingExample pairs the features of day t with the realized volatility of day t+1.
type TrainingExample struct {
	Features FeatureVector
	Target   float64
}

// Hyperparams are the forest settings chosen by the search.
// MaxDepth 0 means unlimited.
type Hyperparams struct {
	NEstimators     int `json:"n_estimators"`
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
}

// TrainedModel is the persisted artifact for one ticker. A retrain writes a new
// record with a new Version; existing records are never modified.
type TrainedModel struct {
	Ticker          string          `json:"ticker"`
	Version         string          `json:"model_version"`
	SchemaVersion   string          `json:"schema_version"`
	FeatureOrder    []string        `json:"features"`
	TrainedAt       time.Time       `json:"trained_on"`
	R2Score         float64         `json:"r2_score"`
	MAE             float64         `json:"mae"`
	BestParams      Hyperparams     `json:"best_params"`
	TrainingSamples int             `json:"training_samples"`
	Params          json.RawMessage `json:"params"`
}

// ConfidenceTier grades a forecast by the model's validation r2.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// Rank orders tiers, low < medium < high.
func (t ConfidenceTier) Rank() int {
	switch t {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// ForecastResult is the next-day volatility forecast served to callers.
// Volatilities are decimal fractions (0.02 = 2%).
type ForecastResult struct {
	Ticker       string         `json:"ticker"`
	AsOf         time.Time      `json:"as_of"`
	Predicted    float64        `json:"predicted"`
	Current      float64        `json:"current"`
	ChangePct    float64        `json:"change_pct"`
	Confidence   ConfidenceTier `json:"confidence"`
	R2Score      float64        `json:"r2_score"`
	MAE          float64        `json:"mae"`
	ModelVersion string         `json:"model_version"`
	TrainedAt    time.Time      `json:"trained_at"`
	Stale        bool           `json:"stale"`
}
