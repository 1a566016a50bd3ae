package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/domain/models"
	"FinSight/pkg/config"
	applogger "FinSight/pkg/logger"
)

type sliceIter struct {
	bars []*finance.ChartBar
	pos  int
	err  error
}

func (s *sliceIter) Next() bool {
	if s.pos >= len(s.bars) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceIter) Bar() *finance.ChartBar { return s.bars[s.pos-1] }
func (s *sliceIter) Err() error             { return s.err }

func chartBar(day int, closePx, adj float64) *finance.ChartBar {
	ts := time.Date(2024, 3, day, 14, 30, 0, 0, time.UTC).Unix()
	return &finance.ChartBar{
		Open:      decimal.NewFromFloat(closePx - 1),
		High:      decimal.NewFromFloat(closePx + 1),
		Low:       decimal.NewFromFloat(closePx - 2),
		Close:     decimal.NewFromFloat(closePx),
		AdjClose:  decimal.NewFromFloat(adj),
		Volume:    1000,
		Timestamp: int(ts),
	}
}

func testPricesConfig() config.PricesConfig {
	return config.PricesConfig{Lookback: 48 * time.Hour, RateLimit: 1000, Burst: 10, MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestYahooPriceLoader_AdjustsAndCleans(t *testing.T) {
	var gotSymbol string
	loader := NewYahooPriceLoader(testPricesConfig(), applogger.NewNop()).WithChart(func(p *chart.Params) BarIter {
		gotSymbol = p.Symbol
		return &sliceIter{bars: []*finance.ChartBar{
			chartBar(1, 100, 50),
			chartBar(4, 0, 0),
			chartBar(5, 110, 110),
			chartBar(5, 112, 112),
		}}
	})

	bars, err := loader.LoadDaily(context.Background(), "AAPL", 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", gotSymbol)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.InDelta(t, 50, bars[0].Close, 1e-9)
	assert.InDelta(t, 49.5, bars[0].Open, 1e-9)
	assert.InDelta(t, 50.5, bars[0].High, 1e-9)
	assert.InDelta(t, 112, bars[1].Close, 1e-9)
	require.NoError(t, models.ValidateBars(bars))
}

func TestYahooPriceLoader_RetriesThenFails(t *testing.T) {
	calls := 0
	loader := NewYahooPriceLoader(testPricesConfig(), applogger.NewNop()).WithChart(func(*chart.Params) BarIter {
		calls++
		return &sliceIter{err: errors.New("503")}
	})

	_, err := loader.LoadDaily(context.Background(), "MSFT", time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstreamFetchFailed)
	assert.Equal(t, 3, calls)
}

func TestYahooPriceLoader_RecoversOnRetry(t *testing.T) {
	calls := 0
	loader := NewYahooPriceLoader(testPricesConfig(), applogger.NewNop()).WithChart(func(*chart.Params) BarIter {
		calls++
		if calls == 1 {
			return &sliceIter{}
		}
		return &sliceIter{bars: []*finance.ChartBar{chartBar(2, 10, 10)}}
	})

	bars, err := loader.LoadDaily(context.Background(), "NVDA", time.Hour)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 2, calls)
}
