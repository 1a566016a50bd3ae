package repository

import (
	"context"
	"errors"
	"fmt"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	"FinSight/pkg/cache"
)

var _ domrepo.ModelStore = (*CacheModelStore)(nil)

// CacheModelStore keeps one record per ticker under model:<TICKER>, without
// expiry. Save overwrites the previous record as a whole.
type CacheModelStore struct {
	c cache.Service
}

func NewCacheModelStore(c cache.Service) *CacheModelStore {
	return &CacheModelStore{c: c}
}

func modelKey(ticker string) string { return cache.Key("model", ticker) }

func (s *CacheModelStore) Save(ctx context.Context, m *models.TrainedModel) error {
	if m == nil || m.Ticker == "" {
		return errors.New("save model: empty record")
	}
	if err := s.c.Set(ctx, modelKey(m.Ticker), m, 0); err != nil {
		return fmt.Errorf("save model %s: %w", m.Ticker, err)
	}
	return nil
}

func (s *CacheModelStore) Load(ctx context.Context, ticker string) (*models.TrainedModel, error) {
	var m models.TrainedModel
	if err := s.c.Get(ctx, modelKey(ticker), &m); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", models.ErrNoModel, ticker)
		}
		return nil, fmt.Errorf("load model %s: %w", ticker, err)
	}
	return &m, nil
}
