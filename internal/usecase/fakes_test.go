package usecase

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/internal/repository"
	"FinSight/internal/services/volatility"
	"FinSight/pkg/cache"
	applogger "FinSight/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordError(string)                        {}
func (nopMetrics) RecordLatency(string, float64)             {}
func (nopMetrics) RecordForecast(string, string)             {}
func (nopMetrics) RecordTraining(string, string, float64)    {}
func (nopMetrics) RecordModelScore(string, float64, float64) {}
func (nopMetrics) RecordSentiment(string, int, float64)      {}

// syntheticBars is a deterministic oscillating price path.
func syntheticBars(n int) []models.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PriceBar, n)
	px := 100.0
	for i := range out {
		prev := px
		r := 0.01*math.Sin(float64(i)*0.7) + 0.005*math.Cos(float64(i)*1.3)
		px *= 1 + r
		out[i] = models.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   prev,
			High:   math.Max(prev, px) * 1.005,
			Low:    math.Min(prev, px) * 0.995,
			Close:  px,
			Volume: 1e6,
		}
	}
	return out
}

type fakePrices struct {
	mu    sync.Mutex
	bars  []models.PriceBar
	err   error
	calls atomic.Int32
	gate  chan struct{} // when set, LoadDaily blocks until closed
	hit   chan struct{}
}

func (f *fakePrices) LoadDaily(ctx context.Context, _ string, _ time.Duration) ([]models.PriceBar, error) {
	f.calls.Add(1)
	if f.hit != nil {
		select {
		case f.hit <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bars, f.err
}

func (f *fakePrices) set(bars []models.PriceBar, err error) {
	f.mu.Lock()
	f.bars, f.err = bars, err
	f.mu.Unlock()
}

type captureEvents struct {
	mu     sync.Mutex
	events []models.TrainingEvent
}

func (c *captureEvents) PublishTraining(_ context.Context, ev models.TrainingEvent) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureEvents) Close() error { return nil }

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func (c *captureEvents) last() models.TrainingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return models.TrainingEvent{}
	}
	return c.events[len(c.events)-1]
}

type recordHistory struct {
	mu  sync.Mutex
	got []*models.ForecastResult
}

func (r *recordHistory) RecordForecast(_ context.Context, f *models.ForecastResult) error {
	r.mu.Lock()
	r.got = append(r.got, f)
	r.mu.Unlock()
	return nil
}

func testSearch() volatility.SearchConfig {
	return volatility.SearchConfig{
		Iterations:      2,
		Folds:           2,
		Seed:            11,
		MaxFeatures:     1,
		Workers:         2,
		NEstimators:     []int{5},
		MaxDepth:        []int{3, 0},
		MinSamplesSplit: []int{2},
		MinSamplesLeaf:  []int{1},
	}
}

func testTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Cadence:     7 * 24 * time.Hour,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		LockTTL:     time.Minute,
		Lookback:    time.Hour,
		Search:      testSearch(),
	}
}

type controllerFixture struct {
	ctrl   *TrainingController
	prices *fakePrices
	events *captureEvents
	store  *repository.CacheModelStore
	cache  *cache.MemoryCache
}

func newControllerFixture(bars []models.PriceBar) *controllerFixture {
	mc := cache.NewMemoryCache()
	prices := &fakePrices{bars: bars}
	events := &captureEvents{}
	store := repository.NewCacheModelStore(mc)
	lock := repository.NewCacheTrainingLock(mc, applogger.NewNop())
	ctrl := NewTrainingController(prices, store, lock, events, nopMetrics{}, applogger.NewNop(), testTrainerConfig())
	return &controllerFixture{ctrl: ctrl, prices: prices, events: events, store: store, cache: mc}
}

func (f *controllerFixture) close() {
	f.ctrl.Close()
	_ = f.cache.Close()
}
