package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"golang.org/x/time/rate"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	"FinSight/pkg/config"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/util"
)

// BarIter is the subset of *chart.Iter the loader reads.
type BarIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// ChartFunc opens a chart query. chart.Get in production.
type ChartFunc func(p *chart.Params) BarIter

var _ domrepo.PriceLoader = (*YahooPriceLoader)(nil)

// YahooPriceLoader pulls daily bars from the Yahoo chart API.
type YahooPriceLoader struct {
	chart       ChartFunc
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	l           *applogger.Logger
}

// NewYahooPriceLoader wires the loader with throttling and retries from cfg.
func NewYahooPriceLoader(cfg config.PricesConfig, l *applogger.Logger) *YahooPriceLoader {
	return &YahooPriceLoader{
		chart:       func(p *chart.Params) BarIter { return chart.Get(p) },
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1)),
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff:     cfg.Backoff,
		now:         time.Now,
		l:           l,
	}
}

// WithChart swaps the chart source.
func (y *YahooPriceLoader) WithChart(fn ChartFunc) *YahooPriceLoader {
	y.chart = fn
	return y
}

// LoadDaily returns split and dividend adjusted bars, oldest first. Sessions
// without a positive close are dropped.
func (y *YahooPriceLoader) LoadDaily(ctx context.Context, ticker string, lookback time.Duration) ([]models.PriceBar, error) {
	end := y.now().UTC()
	start := end.Add(-lookback)

	var lastErr error
	for attempt := 1; attempt <= y.maxAttempts; attempt++ {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: yahoo %s: %w", models.ErrUpstreamFetchFailed, ticker, err)
		}
		bars, err := y.fetch(ctx, ticker, start, end)
		if err == nil {
			y.l.Debug("yahoo bars loaded",
				applogger.Ticker(ticker),
				applogger.Int("bars", len(bars)),
				applogger.Int("attempt", attempt),
			)
			return bars, nil
		}
		lastErr = err
		y.l.Warn("yahoo fetch failed",
			applogger.Ticker(ticker),
			applogger.Int("attempt", attempt),
			applogger.Error(err),
		)
		if attempt < y.maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * y.backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: yahoo %s: %w", models.ErrUpstreamFetchFailed, ticker, ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("%w: yahoo %s after %d attempts: %w", models.ErrUpstreamFetchFailed, ticker, y.maxAttempts, lastErr)
}

func (y *YahooPriceLoader) fetch(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	p := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	p.Context = &ctx

	iter := y.chart(p)
	out := make([]models.PriceBar, 0, 512)
	for iter.Next() {
		b := iter.Bar()
		if b == nil {
			continue
		}
		bar, ok := adjustBar(b)
		if !ok {
			continue
		}
		if n := len(out); n > 0 && !bar.Date.After(out[n-1].Date) {
			// Yahoo repeats the live session at the tail; keep the latest.
			if bar.Date.Equal(out[n-1].Date) {
				out[n-1] = bar
			}
			continue
		}
		out = append(out, bar)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("empty chart")
	}
	return out, nil
}

// adjustBar scales open, high and low by the adjusted close ratio.
func adjustBar(b *finance.ChartBar) (models.PriceBar, bool) {
	closePx := b.Close.InexactFloat64()
	if closePx <= 0 {
		return models.PriceBar{}, false
	}
	adj := b.AdjClose.InexactFloat64()
	ratio := 1.0
	if adj > 0 {
		ratio = adj / closePx
	}
	return models.PriceBar{
		Date:   util.TradingDay(time.Unix(int64(b.Timestamp), 0)),
		Open:   b.Open.InexactFloat64() * ratio,
		High:   b.High.InexactFloat64() * ratio,
		Low:    b.Low.InexactFloat64() * ratio,
		Close:  closePx * ratio,
		Volume: float64(b.Volume),
	}, true
}
