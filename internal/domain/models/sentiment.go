package models

import "time"

// SentimentLabel is the classifier output for one headline.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Score maps a label to its signed value. Unknown labels report ok=false.
func (l SentimentLabel) Score() (float64, bool) {
	switch l {
	case SentimentPositive:
		return 1, true
	case SentimentNeutral:
		return 0, true
	case SentimentNegative:
		return -1, true
	default:
		return 0, false
	}
}

// SignalStrength is the seven-band classification of a weighted sentiment score.
type SignalStrength string

const (
	SignalStrongNegative   SignalStrength = "strong_negative"
	SignalModerateNegative SignalStrength = "moderate_negative"
	SignalWeakNegative     SignalStrength = "weak_negative"
	SignalMixed            SignalStrength = "mixed"
	SignalWeakPositive     SignalStrength = "weak_positive"
	SignalModeratePositive SignalStrength = "moderate_positive"
	SignalStrongPositive   SignalStrength = "strong_positive"
)

// RawHeadline is a fetched, not yet classified, news item.
type RawHeadline struct {
	Title     string
	Link      string
	Source    string
	Summary   string
	Published time.Time
}

// Classification is a classifier verdict for one text.
type Classification struct {
	Label      SentimentLabel
	Confidence float64
}

// Headline is a classified news item.
type Headline struct {
	Title      string         `json:"title"`
	Link       string         `json:"link,omitempty"`
	Source     string         `json:"source,omitempty"`
	Published  time.Time      `json:"published"`
	Label      SentimentLabel `json:"sentiment"`
	Confidence float64        `json:"confidence"`
}

// SentimentDistribution counts included headlines per label.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// SentimentSummary is computed per request and never stored.
type SentimentSummary struct {
	Ticker            string                `json:"ticker"`
	AsOf              time.Time             `json:"as_of"`
	TimeWindowHours   float64               `json:"time_window_hours"`
	ArticlesAnalyzed  int                   `json:"articles_analyzed"`
	Distribution      SentimentDistribution `json:"sentiment_distribution"`
	WeightedScore     float64               `json:"weighted_sentiment_score"`
	AverageConfidence float64               `json:"average_confidence"`
	Signal            SignalStrength        `json:"signal_strength"`
	ContextHeadlines  []Headline            `json:"context_headlines"`
}
