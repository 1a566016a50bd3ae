package repository

import (
	"context"
	"fmt"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	pkgkafka "FinSight/pkg/kafka"
)

// MessagePublisher is the producer surface; *kafka.Producer satisfies it.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var (
	_ MessagePublisher       = (*pkgkafka.Producer)(nil)
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopEventPublisher{}
)

// KafkaEventPublisher writes training events keyed by ticker.
type KafkaEventPublisher struct {
	p     MessagePublisher
	topic string
}

func NewKafkaEventPublisher(p MessagePublisher, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{p: p, topic: topic}
}

func (k *KafkaEventPublisher) PublishTraining(ctx context.Context, ev models.TrainingEvent) error {
	if err := k.p.Publish(ctx, k.topic, []byte(ev.Ticker), ev); err != nil {
		return fmt.Errorf("publish %s event for %s: %w", ev.Type, ev.Ticker, err)
	}
	return nil
}

func (k *KafkaEventPublisher) Close() error { return k.p.Close() }

// NopEventPublisher drops events when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishTraining(context.Context, models.TrainingEvent) error { return nil }
func (NopEventPublisher) Close() error                                                { return nil }
