package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FinSight/internal/domain/models"
)

// Forecaster and SentimentSummarizer are the two halves of a prediction.
type Forecaster interface {
	GetForecast(ctx context.Context, ticker string) (*models.ForecastResult, error)
}

type SentimentSummarizer interface {
	GetSentimentSummary(ctx context.Context, ticker string, asOf *time.Time) (*models.SentimentSummary, error)
}

var (
	_ Forecaster          = (*ForecastUseCase)(nil)
	_ SentimentSummarizer = (*SentimentUseCase)(nil)
)

// ErrPredictionUnavailable is returned when both halves fail.
var ErrPredictionUnavailable = errors.New("prediction unavailable")

// PredictionUseCase runs forecast and sentiment concurrently and merges them.
type PredictionUseCase struct {
	forecast  Forecaster
	sentiment SentimentSummarizer
	timeout   time.Duration
	now       func() time.Time
}

func NewPredictionUseCase(forecast Forecaster, sentiment SentimentSummarizer) *PredictionUseCase {
	return &PredictionUseCase{forecast: forecast, sentiment: sentiment, timeout: 30 * time.Second, now: time.Now}
}

// GetPrediction returns whichever halves succeeded; failures are reported per
// side in Errors. Both failing yields ErrPredictionUnavailable joined with the
// causes.
func (uc *PredictionUseCase) GetPrediction(ctx context.Context, ticker string) (*models.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &models.Prediction{
		Ticker:    ticker,
		Timestamp: uc.now().UTC(),
		Errors:    map[string]string{},
	}

	var (
		wg           sync.WaitGroup
		forecastErr  error
		sentimentErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Volatility, forecastErr = uc.forecast.GetForecast(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		res.Sentiment, sentimentErr = uc.sentiment.GetSentimentSummary(ctx, ticker, nil)
	}()
	wg.Wait()

	if forecastErr != nil {
		res.Errors["volatility"] = forecastErr.Error()
	}
	if sentimentErr != nil {
		res.Errors["sentiment"] = sentimentErr.Error()
	}
	if forecastErr != nil && sentimentErr != nil {
		return nil, errors.Join(ErrPredictionUnavailable, forecastErr, sentimentErr)
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
