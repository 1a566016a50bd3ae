package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/domain/models"
	"FinSight/pkg/cache"
	applogger "FinSight/pkg/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCacheModelStore_RoundTrip(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheModelStore(mc)
	ctx := context.Background()

	_, err := store.Load(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrNoModel)

	rec := &models.TrainedModel{
		Ticker:        "AAPL",
		Version:       "v1",
		SchemaVersion: "vol-features/v1",
		FeatureOrder:  []string{"a", "b"},
		TrainedAt:     time.Date(2024, 10, 1, 2, 0, 0, 0, time.UTC),
		R2Score:       0.42,
		Params:        json.RawMessage(`{"n_features":2}`),
	}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, rec.Version, got.Version)
	assert.Equal(t, rec.FeatureOrder, got.FeatureOrder)
	assert.True(t, rec.TrainedAt.Equal(got.TrainedAt))
	assert.JSONEq(t, string(rec.Params), string(got.Params))

	next := *rec
	next.Version = "v2"
	require.NoError(t, store.Save(ctx, &next))
	got, err = store.Load(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)
	assert.Equal(t, "v1", rec.Version)

	exists, err := mc.Exists(ctx, "model:AAPL")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCacheTrainingLock(t *testing.T) {
	clk := &clock{now: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)}
	mc := cache.NewMemoryCache(cache.WithMemoryClock(clk.Now))
	defer mc.Close()
	ctx := context.Background()

	a := NewCacheTrainingLock(mc, applogger.NewNop())
	b := NewCacheTrainingLock(mc, applogger.NewNop())

	ok, err := a.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	ok, err = b.Acquire(ctx, "MSFT", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "locks are per ticker")

	require.NoError(t, a.Release(ctx, "AAPL"))
	ok, err = b.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// a's lock expires and b takes over; a late release must not free b's lock.
	clk.Advance(2 * time.Minute)
	ok, err = a.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx, "AAPL"))

	ok, err = b.Acquire(ctx, "AAPL", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakePriceLoader struct {
	bars []models.PriceBar
	err  error
}

func (f *fakePriceLoader) LoadDaily(context.Context, string, time.Duration) ([]models.PriceBar, error) {
	return f.bars, f.err
}

type memArchive struct {
	saved   map[string][]models.PriceBar
	loadErr error
}

func (m *memArchive) SaveBars(_ context.Context, ticker string, bars []models.PriceBar) error {
	if m.saved == nil {
		m.saved = map[string][]models.PriceBar{}
	}
	m.saved[ticker] = bars
	return nil
}

func (m *memArchive) LoadBars(_ context.Context, ticker string, _, _ time.Time) ([]models.PriceBar, error) {
	return m.saved[ticker], m.loadErr
}

func dailyBars(n int) []models.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PriceBar, n)
	for i := range out {
		out[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: 10, High: 11, Low: 9, Close: 10 + float64(i), Volume: 100}
	}
	return out
}

func TestArchivedPriceLoader(t *testing.T) {
	ctx := context.Background()
	upstream := &fakePriceLoader{bars: dailyBars(3)}
	archive := &memArchive{}
	loader := NewArchivedPriceLoader(upstream, archive, applogger.NewNop())

	bars, err := loader.LoadDaily(ctx, "AAPL", time.Hour)
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Len(t, archive.saved["AAPL"], 3, "fetch is written through")

	upstream.err = models.ErrUpstreamFetchFailed
	upstream.bars = nil
	bars, err = loader.LoadDaily(ctx, "AAPL", time.Hour)
	require.NoError(t, err)
	assert.Len(t, bars, 3, "archive serves when upstream fails")

	_, err = loader.LoadDaily(ctx, "MSFT", time.Hour)
	assert.ErrorIs(t, err, models.ErrUpstreamFetchFailed, "nothing archived keeps the upstream error")

	archive.loadErr = errors.New("clickhouse down")
	_, err = loader.LoadDaily(ctx, "AAPL", time.Hour)
	assert.ErrorIs(t, err, models.ErrUpstreamFetchFailed)
}

type capturePublisher struct {
	topic string
	key   []byte
	value interface{}
}

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	c.topic, c.key, c.value = topic, key, value
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestKafkaEventPublisher_KeysByTicker(t *testing.T) {
	cp := &capturePublisher{}
	pub := NewKafkaEventPublisher(cp, "events")
	ev := models.TrainingEvent{Type: models.EventModelTrained, Ticker: "NVDA", ModelVersion: "v9", Attempts: 1}

	require.NoError(t, pub.PublishTraining(context.Background(), ev))
	assert.Equal(t, "events", cp.topic)
	assert.Equal(t, []byte("NVDA"), cp.key)
	assert.Equal(t, ev, cp.value)
}

func TestArchiveRows(t *testing.T) {
	bars := dailyBars(2)
	rows := barRows("AAPL", bars)
	require.Len(t, rows, 2)
	assert.Equal(t, []any{"AAPL", bars[1].Date, 10.0, 11.0, 9.0, 11.0, 100.0}, rows[1])

	row := forecastRow(&models.ForecastResult{Ticker: "AAPL", Confidence: models.ConfidenceHigh, Stale: true})
	assert.Equal(t, "high", row[5])
	assert.Equal(t, uint8(1), row[9])
}
