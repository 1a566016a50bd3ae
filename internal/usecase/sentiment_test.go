package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/domain/models"
	"FinSight/internal/services/sentiment"
	applogger "FinSight/pkg/logger"
)

var sentimentAsOf = time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)

type fakeNews struct {
	items []models.RawHeadline
	err   error
}

func (f *fakeNews) Fetch(context.Context, string) ([]models.RawHeadline, error) {
	return f.items, f.err
}

type labelClassifier struct {
	verdicts map[string]models.Classification
	seen     []string
	err      error
}

func (c *labelClassifier) Classify(_ context.Context, texts []string) ([]models.Classification, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.seen = append(c.seen, texts...)
	out := make([]models.Classification, len(texts))
	for i, t := range texts {
		out[i] = c.verdicts[t]
	}
	return out, nil
}

func scenarioNews() *fakeNews {
	raw := func(title string, age time.Duration) models.RawHeadline {
		return models.RawHeadline{Title: title, Source: "Reuters", Published: sentimentAsOf.Add(-age)}
	}
	return &fakeNews{items: []models.RawHeadline{
		raw("fresh", time.Hour),
		raw("mid", 40*time.Hour),
		raw("old", 71*time.Hour),
		raw("stale", 80*time.Hour),
	}}
}

func scenarioClassifier() *labelClassifier {
	return &labelClassifier{verdicts: map[string]models.Classification{
		"fresh": {Label: models.SentimentPositive, Confidence: 0.9},
		"mid":   {Label: models.SentimentNeutral, Confidence: 0.5},
		"old":   {Label: models.SentimentNegative, Confidence: 0.8},
		"stale": {Label: models.SentimentNegative, Confidence: 1},
	}}
}

func TestGetSentimentSummary_Scenario(t *testing.T) {
	cls := scenarioClassifier()
	agg := sentiment.NewAggregator(sentiment.Config{WindowHours: 72, DecayConstant: 0.02})
	uc := NewSentimentUseCase(scenarioNews(), cls, agg, nopMetrics{}, applogger.NewNop())

	asOf := sentimentAsOf
	s, err := uc.GetSentimentSummary(context.Background(), "AAPL", &asOf)
	require.NoError(t, err)

	assert.InDelta(t, 0.4121531979995419, s.WeightedScore, 1e-12)
	assert.Equal(t, models.SignalModeratePositive, s.Signal)
	assert.Equal(t, 3, s.ArticlesAnalyzed)
	assert.Equal(t, []string{"fresh", "mid", "old"}, cls.seen, "out-of-window headlines are not classified")
	assert.Equal(t, "Reuters", s.ContextHeadlines[0].Source)
}

func TestGetSentimentSummary_DefaultsToNow(t *testing.T) {
	agg := sentiment.NewAggregator(sentiment.DefaultConfig())
	uc := NewSentimentUseCase(scenarioNews(), scenarioClassifier(), agg, nopMetrics{}, applogger.NewNop())
	uc.now = func() time.Time { return sentimentAsOf.Add(2 * time.Hour) }

	s, err := uc.GetSentimentSummary(context.Background(), "AAPL", nil)
	require.NoError(t, err)
	assert.Equal(t, sentimentAsOf.Add(2*time.Hour), s.AsOf)
	assert.Equal(t, 2, s.ArticlesAnalyzed)
}

func TestGetSentimentSummary_Errors(t *testing.T) {
	agg := sentiment.NewAggregator(sentiment.DefaultConfig())
	asOf := sentimentAsOf.Add(30 * 24 * time.Hour)

	uc := NewSentimentUseCase(scenarioNews(), scenarioClassifier(), agg, nopMetrics{}, applogger.NewNop())
	_, err := uc.GetSentimentSummary(context.Background(), "AAPL", &asOf)
	assert.ErrorIs(t, err, models.ErrInsufficientArticles)

	uc = NewSentimentUseCase(&fakeNews{err: models.ErrUpstreamFetchFailed}, scenarioClassifier(), agg, nopMetrics{}, applogger.NewNop())
	_, err = uc.GetSentimentSummary(context.Background(), "AAPL", nil)
	assert.ErrorIs(t, err, models.ErrUpstreamFetchFailed)

	cls := scenarioClassifier()
	cls.err = errors.Join(models.ErrUpstreamFetchFailed, errors.New("timeout"))
	uc = NewSentimentUseCase(scenarioNews(), cls, agg, nopMetrics{}, applogger.NewNop())
	at := sentimentAsOf
	_, err = uc.GetSentimentSummary(context.Background(), "AAPL", &at)
	assert.ErrorIs(t, err, models.ErrUpstreamFetchFailed)
}
