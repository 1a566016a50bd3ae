package models

import "errors"

// Error taxonomy shared by the volatility and sentiment pipelines.
var (
	ErrInsufficientHistory  = errors.New("insufficient price history")
	ErrSchemaMismatch       = errors.New("feature schema mismatch")
	ErrInsufficientArticles = errors.New("no articles in recency window")
	ErrUpstreamFetchFailed  = errors.New("upstream fetch failed")
	ErrTrainingFailed       = errors.New("training failed")
	ErrNoModel              = errors.New("no trained model")
	ErrCorruptModel         = errors.New("unreadable model record")

	ErrTrainingInProgress = errors.New("training already in progress")
	ErrInvalidHeadline    = errors.New("invalid headline")
	ErrInvalidTicker      = errors.New("invalid ticker")
)
