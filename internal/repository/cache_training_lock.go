package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domrepo "FinSight/internal/domain/repository"
	"FinSight/pkg/cache"
	applogger "FinSight/pkg/logger"
)

var _ domrepo.TrainingLock = (*CacheTrainingLock)(nil)

// CacheTrainingLock is a SET NX lock per ticker. Each Acquire writes a fresh
// token; Release deletes the key only while it still holds that token, so an
// expired lock taken over by another process is left alone.
type CacheTrainingLock struct {
	c      cache.Service
	l      *applogger.Logger
	mu     sync.Mutex
	tokens map[string]string
}

func NewCacheTrainingLock(c cache.Service, l *applogger.Logger) *CacheTrainingLock {
	return &CacheTrainingLock{c: c, l: l, tokens: make(map[string]string)}
}

func lockKey(ticker string) string { return cache.Key("lock", "train", ticker) }

func (k *CacheTrainingLock) Acquire(ctx context.Context, ticker string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := k.c.TryLock(ctx, lockKey(ticker), token, ttl)
	if err != nil {
		return false, fmt.Errorf("acquire training lock %s: %w", ticker, err)
	}
	if ok {
		k.mu.Lock()
		k.tokens[ticker] = token
		k.mu.Unlock()
	}
	return ok, nil
}

func (k *CacheTrainingLock) Release(ctx context.Context, ticker string) error {
	k.mu.Lock()
	token, ok := k.tokens[ticker]
	delete(k.tokens, ticker)
	k.mu.Unlock()
	if !ok {
		return nil
	}

	err := k.c.Unlock(ctx, lockKey(ticker), token)
	if errors.Is(err, cache.ErrNotOwner) {
		k.l.Warn("training lock expired before release", applogger.Ticker(ticker))
		return nil
	}
	if err != nil {
		return fmt.Errorf("release training lock %s: %w", ticker, err)
	}
	return nil
}
