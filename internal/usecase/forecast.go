package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	"FinSight/internal/services/features"
	"FinSight/internal/services/volatility"
	applogger "FinSight/pkg/logger"
)

// ModelProvider serves Ready models and schedules retrains.
type ModelProvider interface {
	Current(ctx context.Context, ticker string) (*volatility.Model, error)
	IsStale(meta *models.TrainedModel) bool
	TriggerRetrain(ticker string) bool
}

var _ ModelProvider = (*TrainingController)(nil)

// ForecastUseCase predicts next-day volatility from the latest bars.
type ForecastUseCase struct {
	models   ModelProvider
	prices   domrepo.PriceLoader
	history  domrepo.ForecastHistory
	metrics  domrepo.Metrics
	l        *applogger.Logger
	lookback time.Duration
}

// NewForecastUseCase builds the use case. history may be nil.
func NewForecastUseCase(provider ModelProvider, prices domrepo.PriceLoader, history domrepo.ForecastHistory, metrics domrepo.Metrics, l *applogger.Logger, lookback time.Duration) *ForecastUseCase {
	return &ForecastUseCase{models: provider, prices: prices, history: history, metrics: metrics, l: l, lookback: lookback}
}

// GetForecast never trains on the request path. A missing, stale or
// incompatible model triggers a background retrain.
func (uc *ForecastUseCase) GetForecast(ctx context.Context, ticker string) (*models.ForecastResult, error) {
	start := time.Now()
	res, err := uc.forecast(ctx, ticker)
	uc.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	uc.metrics.RecordForecast(ticker, resultLabel(err))
	if err != nil {
		return nil, err
	}
	if uc.history != nil {
		if herr := uc.history.RecordForecast(ctx, res); herr != nil {
			uc.metrics.RecordError("forecast_history")
			uc.l.Warn("record forecast", applogger.Ticker(ticker), applogger.Error(herr))
		}
	}
	return res, nil
}

func (uc *ForecastUseCase) forecast(ctx context.Context, ticker string) (*models.ForecastResult, error) {
	m, err := uc.models.Current(ctx, ticker)
	if err != nil {
		if errors.Is(err, models.ErrNoModel) || errors.Is(err, models.ErrSchemaMismatch) || errors.Is(err, models.ErrCorruptModel) {
			uc.retrain(ticker, err)
		}
		return nil, err
	}

	bars, err := uc.prices.LoadDaily(ctx, ticker, uc.lookback)
	if err != nil {
		return nil, err
	}
	vectors, err := features.Compute(bars)
	if err != nil {
		return nil, err
	}
	latest := vectors[len(vectors)-1]

	predicted, tier, err := m.Predict(latest)
	if err != nil {
		if errors.Is(err, models.ErrSchemaMismatch) {
			uc.retrain(ticker, err)
		}
		return nil, err
	}
	current, _ := latest.Value(features.RollingVolatility)
	if current <= 0 {
		return nil, fmt.Errorf("%w: %s has zero realized volatility", models.ErrInsufficientHistory, ticker)
	}

	meta := m.Meta()
	stale := uc.models.IsStale(meta)
	if stale {
		uc.retrain(ticker, nil)
	}

	return &models.ForecastResult{
		Ticker:       ticker,
		AsOf:         latest.Date,
		Predicted:    predicted,
		Current:      current,
		ChangePct:    ChangePct(predicted, current),
		Confidence:   tier,
		R2Score:      round(meta.R2Score, 3),
		MAE:          round(meta.MAE, 6),
		ModelVersion: meta.Version,
		TrainedAt:    meta.TrainedAt,
		Stale:        stale,
	}, nil
}

func (uc *ForecastUseCase) retrain(ticker string, cause error) {
	if uc.models.TriggerRetrain(ticker) {
		fields := []applogger.Field{applogger.Ticker(ticker)}
		if cause != nil {
			fields = append(fields, applogger.Error(cause))
		}
		uc.l.Info("background retrain started", fields...)
	}
}

// ChangePct is the relative change from current to predicted in percent,
// rounded half away from zero to one decimal.
func ChangePct(predicted, current float64) float64 {
	return round((predicted-current)/current*100, 1)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNoModel), errors.Is(err, models.ErrCorruptModel):
		return "no_model"
	case errors.Is(err, models.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, models.ErrInsufficientArticles):
		return "insufficient_articles"
	case errors.Is(err, models.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, models.ErrUpstreamFetchFailed):
		return "upstream"
	default:
		return "error"
	}
}
