package sentiment

import (
	"fmt"
	"math"
	"sort"
	"time"

	"FinSight/internal/domain/models"
)

// Signal band cut points on |weighted score|. A band is reached when the
// magnitude is at or above its threshold.
const (
	StrongThreshold   = 0.55
	ModerateThreshold = 0.30
	WeakThreshold     = 0.10
)

// DefaultDecayConstant is the per-hour decay rate. Weight at the 72h window
// edge is exp(-1.5), about 0.22.
const DefaultDecayConstant = 1.0 / 48

// Config parameterizes the aggregator.
type Config struct {
	WindowHours      float64
	DecayConstant    float64
	MaxArticles      int
	ContextHeadlines int
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{
		WindowHours:      72,
		DecayConstant:    DefaultDecayConstant,
		MaxArticles:      25,
		ContextHeadlines: 5,
	}
}

// Aggregator folds classified headlines into a SentimentSummary. It holds no
// state besides its configuration.
type Aggregator struct {
	cfg Config
}

// NewAggregator fills unset fields from DefaultConfig.
func NewAggregator(cfg Config) *Aggregator {
	def := DefaultConfig()
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = def.WindowHours
	}
	if cfg.DecayConstant <= 0 {
		cfg.DecayConstant = def.DecayConstant
	}
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = def.MaxArticles
	}
	if cfg.ContextHeadlines <= 0 {
		cfg.ContextHeadlines = def.ContextHeadlines
	}
	return &Aggregator{cfg: cfg}
}

// Config returns the effective configuration.
func (a *Aggregator) Config() Config { return a.cfg }

// AgeHours is the age of a headline at asOf. Negative for future headlines.
func AgeHours(published, asOf time.Time) float64 {
	return asOf.Sub(published).Hours()
}

// InWindow reports whether a headline published at p counts at asOf:
// 0 <= age_hours <= windowHours.
func InWindow(p, asOf time.Time, windowHours float64) bool {
	age := AgeHours(p, asOf)
	return age >= 0 && age <= windowHours
}

// Select drops headlines outside the window and returns the rest most recent
// first, ties broken by title, capped at MaxArticles.
func (a *Aggregator) Select(headlines []models.Headline, asOf time.Time) []models.Headline {
	in := make([]models.Headline, 0, len(headlines))
	for _, h := range headlines {
		if InWindow(h.Published, asOf, a.cfg.WindowHours) {
			in = append(in, h)
		}
	}
	sort.SliceStable(in, func(i, j int) bool {
		if !in[i].Published.Equal(in[j].Published) {
			return in[i].Published.After(in[j].Published)
		}
		return in[i].Title < in[j].Title
	})
	if len(in) > a.cfg.MaxArticles {
		in = in[:a.cfg.MaxArticles]
	}
	return in
}

// Summarize computes the recency-weighted summary at asOf. It fails with
// ErrInsufficientArticles when no headline is in the window.
func (a *Aggregator) Summarize(ticker string, headlines []models.Headline, asOf time.Time) (*models.SentimentSummary, error) {
	included := a.Select(headlines, asOf)
	if len(included) == 0 {
		return nil, fmt.Errorf("%w: %s has none within %gh of %s", models.ErrInsufficientArticles, ticker, a.cfg.WindowHours, asOf.UTC().Format(time.RFC3339))
	}

	var num, den, confSum float64
	var dist models.SentimentDistribution
	for i, h := range included {
		s, ok := h.Label.Score()
		if !ok {
			return nil, fmt.Errorf("%w: headline %d has unknown label %q", models.ErrInvalidHeadline, i, h.Label)
		}
		if math.IsNaN(h.Confidence) || h.Confidence < 0 || h.Confidence > 1 {
			return nil, fmt.Errorf("%w: headline %d has confidence %v outside [0, 1]", models.ErrInvalidHeadline, i, h.Confidence)
		}
		w := math.Exp(-a.cfg.DecayConstant * AgeHours(h.Published, asOf))
		num += w * s * h.Confidence
		den += w
		confSum += h.Confidence

		switch h.Label {
		case models.SentimentPositive:
			dist.Positive++
		case models.SentimentNeutral:
			dist.Neutral++
		case models.SentimentNegative:
			dist.Negative++
		}
	}

	score := num / den
	top := included[:min(a.cfg.ContextHeadlines, len(included))]
	return &models.SentimentSummary{
		Ticker:            ticker,
		AsOf:              asOf,
		TimeWindowHours:   a.cfg.WindowHours,
		ArticlesAnalyzed:  len(included),
		Distribution:      dist,
		WeightedScore:     score,
		AverageConfidence: confSum / float64(len(included)),
		Signal:            Classify(score),
		ContextHeadlines:  append([]models.Headline(nil), top...),
	}, nil
}

// Classify maps a weighted score to its seven-band signal strength.
func Classify(score float64) models.SignalStrength {
	mag := math.Abs(score)
	switch {
	case mag >= StrongThreshold:
		if score > 0 {
			return models.SignalStrongPositive
		}
		return models.SignalStrongNegative
	case mag >= ModerateThreshold:
		if score > 0 {
			return models.SignalModeratePositive
		}
		return models.SignalModerateNegative
	case mag >= WeakThreshold:
		if score > 0 {
			return models.SignalWeakPositive
		}
		return models.SignalWeakNegative
	default:
		return models.SignalMixed
	}
}
