package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	pkgch "FinSight/pkg/clickhouse"
	applogger "FinSight/pkg/logger"
)

// ArchiveSchema creates the bar and forecast history tables. Re-saving a
// session replaces it on merge; reads use FINAL.
var ArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS bars_daily (
		ticker      LowCardinality(String),
		date        Date,
		open        Float64,
		high        Float64,
		low         Float64,
		close       Float64,
		volume      Float64,
		inserted_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(inserted_at)
	ORDER BY (ticker, date)`,
	`CREATE TABLE IF NOT EXISTS forecast_history (
		ticker        LowCardinality(String),
		as_of         DateTime64(3, 'UTC'),
		predicted     Float64,
		current       Float64,
		change_pct    Float64,
		confidence    LowCardinality(String),
		r2_score      Float64,
		mae           Float64,
		model_version String,
		stale         UInt8
	) ENGINE = MergeTree()
	ORDER BY (ticker, as_of)`,
}

const (
	insertBarsQuery = `INSERT INTO bars_daily (ticker, date, open, high, low, close, volume)`
	selectBarsQuery = `
		SELECT date, open, high, low, close, volume
		FROM bars_daily FINAL
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`
	insertForecastQuery = `INSERT INTO forecast_history
		(ticker, as_of, predicted, current, change_pct, confidence, r2_score, mae, model_version, stale)`
)

var (
	_ domrepo.BarArchive      = (*CHBarArchive)(nil)
	_ domrepo.ForecastHistory = (*CHBarArchive)(nil)
)

// CHBarArchive keeps daily bars and served forecasts in ClickHouse.
type CHBarArchive struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarArchive(ch *pkgch.Client, l *applogger.Logger) *CHBarArchive {
	return &CHBarArchive{ch: ch, db: ch.DB(), l: l}
}

// Init applies ArchiveSchema.
func (s *CHBarArchive) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, ArchiveSchema)
}

func (s *CHBarArchive) SaveBars(ctx context.Context, ticker string, bars []models.PriceBar) error {
	start := time.Now()
	if err := s.ch.InsertBatch(ctx, insertBarsQuery, barRows(ticker, bars)); err != nil {
		s.l.Error("clickhouse save_bars error", applogger.Ticker(ticker), applogger.Int("rows", len(bars)), applogger.Error(err))
		return fmt.Errorf("save bars: %w", err)
	}
	s.l.Debug("clickhouse save_bars ok",
		applogger.Ticker(ticker),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHBarArchive) LoadBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, selectBarsQuery, ticker, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse load_bars query error", applogger.Ticker(ticker), applogger.Error(err))
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 512)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHBarArchive) RecordForecast(ctx context.Context, f *models.ForecastResult) error {
	if err := s.ch.InsertBatch(ctx, insertForecastQuery, [][]any{forecastRow(f)}); err != nil {
		return fmt.Errorf("record forecast: %w", err)
	}
	return nil
}

func barRows(ticker string, bars []models.PriceBar) [][]any {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{ticker, b.Date.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume})
	}
	return rows
}

func forecastRow(f *models.ForecastResult) []any {
	var stale uint8
	if f.Stale {
		stale = 1
	}
	return []any{
		f.Ticker, f.AsOf.UTC(), f.Predicted, f.Current, f.ChangePct,
		string(f.Confidence), f.R2Score, f.MAE, f.ModelVersion, stale,
	}
}
