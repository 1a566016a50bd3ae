package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	pkgkafka "FinSight/pkg/kafka"
)

// Trainer runs one synchronous training cycle.
type Trainer interface {
	Train(ctx context.Context, ticker string) (*models.TrainedModel, error)
}

var _ Trainer = (*TrainingController)(nil)

// KafkaRetrainHandler consumes RetrainRequest messages.
type KafkaRetrainHandler struct {
	topic   string
	trainer Trainer
	metrics domrepo.Metrics
}

func NewKafkaRetrainHandler(topic string, trainer Trainer, metrics domrepo.Metrics) *KafkaRetrainHandler {
	return &KafkaRetrainHandler{topic: topic, trainer: trainer, metrics: metrics}
}

func (h *KafkaRetrainHandler) Topic() string { return h.topic }

// Handle trains synchronously. A cycle already running elsewhere satisfies the
// request; a malformed message or an exhausted cycle is returned so the
// consumer can retry and dead-letter it.
func (h *KafkaRetrainHandler) Handle(ctx context.Context, b []byte) error {
	var req models.RetrainRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode retrain request: %w", err)
	}
	ticker, err := models.NormalizeTicker(req.Ticker)
	if err != nil {
		h.metrics.RecordError("consumer_ticker")
		return err
	}

	start := time.Now()
	_, err = h.trainer.Train(ctx, ticker)
	h.metrics.RecordLatency("retrain_request", time.Since(start).Seconds())
	if errors.Is(err, models.ErrTrainingInProgress) {
		return nil
	}
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaRetrainHandler)(nil)
