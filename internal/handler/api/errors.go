package api

import (
	"errors"
	"net/http"

	"FinSight/internal/domain/models"
	"FinSight/internal/usecase"
	xhttp "FinSight/pkg/http"
)

// toAppError maps pipeline failures onto the HTTP error envelope.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrPredictionUnavailable):
		return xhttp.ServiceUnavailableError("ERR_PREDICTION_UNAVAILABLE", "neither forecast nor sentiment could be produced").
			WithParam("causes", causes(err)).WithError(err)
	case errors.Is(err, models.ErrInvalidTicker):
		return xhttp.NewAppError("ERR_INVALID_TICKER", "ticker", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrTrainingInProgress):
		return xhttp.ConflictError("a training cycle is already running").WithError(err)
	case errors.Is(err, models.ErrNoModel), errors.Is(err, models.ErrCorruptModel):
		return xhttp.ServiceUnavailableError("ERR_NO_MODEL", "model not trained yet, retry shortly").WithError(err)
	case errors.Is(err, models.ErrSchemaMismatch):
		return xhttp.ServiceUnavailableError("ERR_SCHEMA_MISMATCH", "model is being rebuilt for the current feature set").WithError(err)
	case errors.Is(err, models.ErrInsufficientHistory):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_HISTORY", "not enough price history for this ticker").WithError(err)
	case errors.Is(err, models.ErrInsufficientArticles):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_ARTICLES", "no recent headlines for this ticker").WithError(err)
	case errors.Is(err, models.ErrUpstreamFetchFailed):
		return xhttp.BadGatewayError("upstream data source unavailable").WithError(err)
	case errors.Is(err, models.ErrTrainingFailed):
		return xhttp.InternalError("training failed").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

// causes lists the messages joined under ErrPredictionUnavailable.
func causes(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil
	}
	var out []string
	for _, e := range joined.Unwrap() {
		if !errors.Is(e, usecase.ErrPredictionUnavailable) {
			out = append(out, e.Error())
		}
	}
	return out
}
