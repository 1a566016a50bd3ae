package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/domain/models"
	"FinSight/internal/usecase"
	"FinSight/pkg/http/middleware"
	xlogger "FinSight/pkg/logger"
)

type fakePipelines struct {
	forecastErr  error
	sentimentErr error
	predictErr   error
	triggered    []string
	busy         bool
	asOf         *time.Time
}

func (f *fakePipelines) GetPrediction(_ context.Context, ticker string) (*models.Prediction, error) {
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	return &models.Prediction{Ticker: ticker, Errors: map[string]string{"sentiment": "no articles"}}, nil
}

func (f *fakePipelines) GetForecast(_ context.Context, ticker string) (*models.ForecastResult, error) {
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return &models.ForecastResult{Ticker: ticker, Predicted: 0.21, Current: 0.2, ChangePct: 5}, nil
}

func (f *fakePipelines) GetSentimentSummary(_ context.Context, ticker string, asOf *time.Time) (*models.SentimentSummary, error) {
	f.asOf = asOf
	if f.sentimentErr != nil {
		return nil, f.sentimentErr
	}
	return &models.SentimentSummary{Ticker: ticker, ArticlesAnalyzed: 3, Signal: models.SignalMixed}, nil
}

func (f *fakePipelines) TriggerRetrain(ticker string) bool {
	if f.busy {
		return false
	}
	f.triggered = append(f.triggered, ticker)
	return true
}

func (f *fakePipelines) State(_ context.Context, ticker string) models.ModelState {
	if ticker == "AAPL" {
		return models.ModelReady
	}
	return models.ModelStale
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(f *fakePipelines, limiter *middleware.KeyedLimiter) *echo.Echo {
	h := NewPredictionEchoHandler(xlogger.NewNop(), f, f, f, f, []string{"AAPL", "MSFT"}, limiter)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestForecastNormalizesTicker(t *testing.T) {
	e := newRouter(&fakePipelines{}, nil)
	rec, env := do(t, e, http.MethodGet, "/api/forecast/aapl")

	require.Equal(t, http.StatusOK, rec.Code)
	var res models.ForecastResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Ticker)
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))
}

func TestInvalidTickerIsBadRequest(t *testing.T) {
	e := newRouter(&fakePipelines{}, nil)
	for _, target := range []string{"/api/forecast/AAPL1", "/api/predict/TOOLONGTICKER", "/api/sentiment/BRK.B"} {
		rec, env := do(t, e, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, http.StatusBadRequest, env.Status, target)
	}
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrNoModel, http.StatusServiceUnavailable, "ERR_NO_MODEL"},
		{fmt.Errorf("load model AAPL: %w", models.ErrCorruptModel), http.StatusServiceUnavailable, "ERR_NO_MODEL"},
		{fmt.Errorf("wrap: %w", models.ErrSchemaMismatch), http.StatusServiceUnavailable, "ERR_SCHEMA_MISMATCH"},
		{models.ErrInsufficientHistory, http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_HISTORY"},
		{fmt.Errorf("%w: yahoo", models.ErrUpstreamFetchFailed), http.StatusBadGateway, "ERR_UPSTREAM"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		e := newRouter(&fakePipelines{forecastErr: tc.err}, nil)
		rec, env := do(t, e, http.MethodGet, "/api/forecast/MSFT")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		var errs []struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &errs))
		require.Len(t, errs, 1)
		assert.Equal(t, tc.code, errs[0].Code)
	}
}

func TestPredictPartialAndUnavailable(t *testing.T) {
	rec, env := do(t, newRouter(&fakePipelines{}, nil), http.MethodGet, "/api/predict/nvda")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Prediction
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "NVDA", p.Ticker)
	assert.Contains(t, p.Errors, "sentiment")

	err := errors.Join(usecase.ErrPredictionUnavailable, models.ErrNoModel, models.ErrInsufficientArticles)
	rec, env = do(t, newRouter(&fakePipelines{predictErr: err}, nil), http.MethodGet, "/api/predict/NVDA")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var errs []struct {
		Code   string `json:"code"`
		Params struct {
			Causes []string `json:"causes"`
		} `json:"params"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_PREDICTION_UNAVAILABLE", errs[0].Code)
	assert.Len(t, errs[0].Params.Causes, 2)
}

func TestPredictRateLimited(t *testing.T) {
	e := newRouter(&fakePipelines{}, middleware.NewKeyedLimiter(1, 1))
	rec, _ := do(t, e, http.MethodGet, "/api/predict/AAPL")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodGet, "/api/predict/AAPL")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/forecast/AAPL")
	assert.Equal(t, http.StatusOK, rec.Code, "only /api/predict is throttled")
}

func TestSentimentAsOf(t *testing.T) {
	f := &fakePipelines{}
	e := newRouter(f, nil)

	rec, _ := do(t, e, http.MethodGet, "/api/sentiment/AAPL?as_of=2024-03-01T12:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.asOf)
	assert.True(t, f.asOf.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	rec, _ = do(t, e, http.MethodGet, "/api/sentiment/AAPL?as_of=1709294400")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1709294400), f.asOf.Unix())

	rec, _ = do(t, e, http.MethodGet, "/api/sentiment/AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, f.asOf)

	rec, _ = do(t, e, http.MethodGet, "/api/sentiment/AAPL?as_of=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.sentimentErr = models.ErrInsufficientArticles
	rec, _ = do(t, e, http.MethodGet, "/api/sentiment/AAPL")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTrainAcceptedOrConflict(t *testing.T) {
	f := &fakePipelines{}
	e := newRouter(f, nil)

	rec, _ := do(t, e, http.MethodPost, "/api/train/msft")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"MSFT"}, f.triggered)

	f.busy = true
	rec, _ = do(t, e, http.MethodPost, "/api/train/MSFT")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthReportsModelStates(t *testing.T) {
	rec, env := do(t, newRouter(&fakePipelines{}, nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string                       `json:"status"`
		Models map[string]models.ModelState `json:"models"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, models.ModelReady, body.Models["AAPL"])
	assert.Equal(t, models.ModelStale, body.Models["MSFT"])
}
