package models

import "time"

// Prediction merges the forecast and the sentiment view for one ticker.
// Errors holds the message of whichever side failed.
type Prediction struct {
	Ticker     string            `json:"ticker"`
	Timestamp  time.Time         `json:"timestamp"`
	Volatility *ForecastResult   `json:"volatility,omitempty"`
	Sentiment  *SentimentSummary `json:"sentiment,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Training event types.
const (
	EventModelTrained   = "model_trained"
	EventTrainingFailed = "training_failed"
)

// TrainingEvent is published after every training cycle.
type TrainingEvent struct {
	Type         string    `json:"type"`
	Ticker       string    `json:"ticker"`
	ModelVersion string    `json:"model_version,omitempty"`
	R2Score      float64   `json:"r2_score,omitempty"`
	MAE          float64   `json:"mae,omitempty"`
	TrainedAt    time.Time `json:"trained_at,omitempty"`
	Attempts     int       `json:"attempts"`
	Error        string    `json:"error,omitempty"`
}

// RetrainRequest asks for a synchronous training cycle.
type RetrainRequest struct {
	Ticker string `json:"ticker"`
}

// ModelState is the training state of a ticker slot.
type ModelState string

const (
	ModelStale    ModelState = "stale"
	ModelTraining ModelState = "training"
	ModelReady    ModelState = "ready"
)
