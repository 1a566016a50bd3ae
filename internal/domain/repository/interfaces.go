package repository

import (
	"context"
	"time"

	"FinSight/internal/domain/models"
)

// PriceLoader fetches daily bars for a ticker over a trailing window ending now.
// Failures wrap models.ErrUpstreamFetchFailed.
type PriceLoader interface {
	LoadDaily(ctx context.Context, ticker string, lookback time.Duration) ([]models.PriceBar, error)
}

// BarArchive stores fetched bars for reuse when the upstream is unavailable.
type BarArchive interface {
	SaveBars(ctx context.Context, ticker string, bars []models.PriceBar) error
	LoadBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error)
}

// HeadlineSource fetches recent headlines for a ticker, most recent first.
// Failures wrap models.ErrUpstreamFetchFailed.
type HeadlineSource interface {
	Fetch(ctx context.Context, ticker string) ([]models.RawHeadline, error)
}

// ModelStore persists one TrainedModel record per ticker.
// Load returns models.ErrNoModel when nothing is stored.
type ModelStore interface {
	Save(ctx context.Context, m *models.TrainedModel) error
	Load(ctx context.Context, ticker string) (*models.TrainedModel, error)
}

// TrainingLock gives cross-process mutual exclusion over a ticker's training slot.
type TrainingLock interface {
	Acquire(ctx context.Context, ticker string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, ticker string) error
}

// EventPublisher ships training lifecycle events.
type EventPublisher interface {
	PublishTraining(ctx context.Context, ev models.TrainingEvent) error
	Close() error
}

// ForecastHistory records served forecasts.
type ForecastHistory interface {
	RecordForecast(ctx context.Context, f *models.ForecastResult) error
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordForecast(ticker, result string)
	RecordTraining(ticker, result string, seconds float64)
	RecordModelScore(ticker string, r2, mae float64)
	RecordSentiment(ticker string, articles int, score float64)
}
