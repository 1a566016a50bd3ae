package usecase

import (
	"context"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	domsvc "FinSight/internal/domain/service"
	"FinSight/internal/services/sentiment"
	applogger "FinSight/pkg/logger"
)

// SentimentUseCase fetches, classifies and aggregates headlines per request.
type SentimentUseCase struct {
	news       domrepo.HeadlineSource
	classifier domsvc.SentimentClassifier
	agg        *sentiment.Aggregator
	metrics    domrepo.Metrics
	l          *applogger.Logger
	now        func() time.Time
}

func NewSentimentUseCase(news domrepo.HeadlineSource, classifier domsvc.SentimentClassifier, agg *sentiment.Aggregator, metrics domrepo.Metrics, l *applogger.Logger) *SentimentUseCase {
	return &SentimentUseCase{news: news, classifier: classifier, agg: agg, metrics: metrics, l: l, now: time.Now}
}

// GetSentimentSummary summarizes headlines around asOf, or now when nil. Only
// headlines inside the window, capped at the article limit, are classified.
func (uc *SentimentUseCase) GetSentimentSummary(ctx context.Context, ticker string, asOf *time.Time) (*models.SentimentSummary, error) {
	start := time.Now()
	ref := uc.now().UTC()
	if asOf != nil {
		ref = asOf.UTC()
	}

	sum, err := uc.summarize(ctx, ticker, ref)
	uc.metrics.RecordLatency("sentiment", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("sentiment_" + resultLabel(err))
		return nil, err
	}
	uc.metrics.RecordSentiment(ticker, sum.ArticlesAnalyzed, sum.WeightedScore)
	uc.l.Debug("sentiment summarized",
		applogger.Ticker(ticker),
		applogger.Int("articles", sum.ArticlesAnalyzed),
		applogger.Float64("score", sum.WeightedScore),
		applogger.String("signal", string(sum.Signal)),
	)
	return sum, nil
}

func (uc *SentimentUseCase) summarize(ctx context.Context, ticker string, asOf time.Time) (*models.SentimentSummary, error) {
	raw, err := uc.news.Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	cfg := uc.agg.Config()
	candidates := make([]models.Headline, 0, len(raw))
	for _, r := range raw {
		candidates = append(candidates, models.Headline{Title: r.Title, Link: r.Link, Source: r.Source, Published: r.Published})
	}
	candidates = uc.agg.Select(candidates, asOf)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s within %gh of %s", models.ErrInsufficientArticles, ticker, cfg.WindowHours, asOf.Format(time.RFC3339))
	}

	texts := make([]string, len(candidates))
	for i, h := range candidates {
		texts[i] = h.Title
	}
	verdicts, err := uc.classifier.Classify(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(verdicts) != len(candidates) {
		return nil, fmt.Errorf("%w: classifier returned %d verdicts for %d headlines", models.ErrUpstreamFetchFailed, len(verdicts), len(candidates))
	}
	for i := range candidates {
		candidates[i].Label = verdicts[i].Label
		candidates[i].Confidence = verdicts[i].Confidence
	}
	return uc.agg.Summarize(ticker, candidates, asOf)
}
