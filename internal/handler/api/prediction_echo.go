package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"FinSight/internal/domain/models"
	"FinSight/internal/usecase"
	xhttp "FinSight/pkg/http"
	"FinSight/pkg/http/middleware"
	xlogger "FinSight/pkg/logger"
	"FinSight/pkg/util"
)

// Predictor merges both pipelines for one ticker.
type Predictor interface {
	GetPrediction(ctx context.Context, ticker string) (*models.Prediction, error)
}

// ModelTrainer exposes the training lifecycle to the API.
type ModelTrainer interface {
	TriggerRetrain(ticker string) bool
	State(ctx context.Context, ticker string) models.ModelState
}

var (
	_ Predictor    = (*usecase.PredictionUseCase)(nil)
	_ ModelTrainer = (*usecase.TrainingController)(nil)
)

// PredictionEchoHandler serves the prediction API.
type PredictionEchoHandler struct {
	logger    *xlogger.Logger
	predictor Predictor
	forecast  usecase.Forecaster
	sentiment usecase.SentimentSummarizer
	trainer   ModelTrainer
	tickers   []string
	limiter   *middleware.KeyedLimiter
}

// NewPredictionEchoHandler wires the handler. limiter may be nil to leave
// /api/predict unthrottled.
func NewPredictionEchoHandler(
	logger *xlogger.Logger,
	predictor Predictor,
	forecast usecase.Forecaster,
	sentiment usecase.SentimentSummarizer,
	trainer ModelTrainer,
	tickers []string,
	limiter *middleware.KeyedLimiter,
) *PredictionEchoHandler {
	return &PredictionEchoHandler{
		logger:    logger,
		predictor: predictor,
		forecast:  forecast,
		sentiment: sentiment,
		trainer:   trainer,
		tickers:   tickers,
		limiter:   limiter,
	}
}

var _ xhttp.Handler = (*PredictionEchoHandler)(nil)

func (h *PredictionEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	g := e.Group("/api")
	var predictMW []echo.MiddlewareFunc
	if h.limiter != nil {
		predictMW = append(predictMW, middleware.RateLimit(h.limiter))
	}
	g.GET("/predict/:ticker", h.Predict, predictMW...)
	g.GET("/forecast/:ticker", h.Forecast)
	g.GET("/sentiment/:ticker", h.Sentiment)
	g.POST("/train/:ticker", h.Train)
}

func (h *PredictionEchoHandler) Root(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  "online",
		"version": "1.0",
		"endpoints": map[string]string{
			"predict":   "/api/predict/:ticker",
			"forecast":  "/api/forecast/:ticker",
			"sentiment": "/api/sentiment/:ticker",
			"train":     "/api/train/:ticker",
			"health":    "/health",
		},
	})
}

// Health reports the pipelines and the model state of every warm ticker.
func (h *PredictionEchoHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	states := make(map[string]models.ModelState, len(h.tickers))
	for _, t := range h.tickers {
		states[t] = h.trainer.State(ctx, t)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "healthy",
		"pipelines": map[string]string{
			"volatility": "loaded",
			"sentiment":  "loaded",
		},
		"models": states,
	})
}

func (h *PredictionEchoHandler) Predict(c echo.Context) error {
	ticker, ok, err := h.ticker(c)
	if !ok {
		return err
	}

	start := time.Now()
	res, err := h.predictor.GetPrediction(c.Request().Context(), ticker)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Ticker(ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.logger.Info("prediction served",
		xlogger.Ticker(ticker),
		xlogger.Duration("duration_ms", time.Since(start)),
		xlogger.Int("failed_sides", len(res.Errors)),
	)
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionEchoHandler) Forecast(c echo.Context) error {
	ticker, ok, err := h.ticker(c)
	if !ok {
		return err
	}

	res, err := h.forecast.GetForecast(c.Request().Context(), ticker)
	if err != nil {
		h.logger.Warn("forecast usecase error", xlogger.Ticker(ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionEchoHandler) Sentiment(c echo.Context) error {
	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker, err := models.NormalizeTicker(req.Ticker)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	var asOf *time.Time
	if req.AsOf != "" {
		t, ok := util.ParseTime(req.AsOf)
		if !ok {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_AS_OF",
				Field:   "as_of",
				Message: "as_of must be RFC3339, a date or unix seconds",
			}})
		}
		asOf = &t
	}

	res, err := h.sentiment.GetSentimentSummary(c.Request().Context(), ticker, asOf)
	if err != nil {
		h.logger.Warn("sentiment usecase error", xlogger.Ticker(ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// Train starts a background cycle, or answers 409 while one is running.
func (h *PredictionEchoHandler) Train(c echo.Context) error {
	ticker, ok, err := h.ticker(c)
	if !ok {
		return err
	}

	if !h.trainer.TriggerRetrain(ticker) {
		return xhttp.AppErrorResponse(c, toAppError(models.ErrTrainingInProgress))
	}
	h.logger.Info("retrain requested", xlogger.Ticker(ticker))
	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"ticker": ticker,
		"state":  models.ModelTraining,
	})
}

// ticker validates the path parameter. When ok is false the error response
// has been written and err is the result of writing it.
func (h *PredictionEchoHandler) ticker(c echo.Context) (ticker string, ok bool, err error) {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return "", false, xhttp.BadRequestResponse(c, verr)
	}
	ticker, nerr := models.NormalizeTicker(req.Ticker)
	if nerr != nil {
		return "", false, xhttp.AppErrorResponse(c, toAppError(nerr))
	}
	return ticker, true, nil
}
