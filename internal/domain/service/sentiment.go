package service

import (
	"context"

	"FinSight/internal/domain/models"
)

// SentimentClassifier labels texts. The result has one entry per input, in order.
type SentimentClassifier interface {
	Classify(ctx context.Context, texts []string) ([]models.Classification, error)
}
