package repository

import (
	"context"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	applogger "FinSight/pkg/logger"
)

var _ domrepo.PriceLoader = (*ArchivedPriceLoader)(nil)

// ArchivedPriceLoader writes every upstream fetch through to the archive and
// serves from the archive when the upstream fails.
type ArchivedPriceLoader struct {
	upstream domrepo.PriceLoader
	archive  domrepo.BarArchive
	now      func() time.Time
	l        *applogger.Logger
}

func NewArchivedPriceLoader(upstream domrepo.PriceLoader, archive domrepo.BarArchive, l *applogger.Logger) *ArchivedPriceLoader {
	return &ArchivedPriceLoader{upstream: upstream, archive: archive, now: time.Now, l: l}
}

func (a *ArchivedPriceLoader) LoadDaily(ctx context.Context, ticker string, lookback time.Duration) ([]models.PriceBar, error) {
	bars, err := a.upstream.LoadDaily(ctx, ticker, lookback)
	if err == nil {
		if serr := a.archive.SaveBars(ctx, ticker, bars); serr != nil {
			a.l.Warn("bar archive write failed", applogger.Ticker(ticker), applogger.Error(serr))
		}
		return bars, nil
	}

	end := a.now().UTC()
	archived, aerr := a.archive.LoadBars(ctx, ticker, end.Add(-lookback), end)
	if aerr != nil || len(archived) == 0 {
		if aerr != nil {
			a.l.Warn("bar archive read failed", applogger.Ticker(ticker), applogger.Error(aerr))
		}
		return nil, err
	}
	a.l.Warn("serving archived bars",
		applogger.Ticker(ticker),
		applogger.Int("bars", len(archived)),
		applogger.Error(err),
	)
	if verr := models.ValidateBars(archived); verr != nil {
		return nil, fmt.Errorf("%w: archived bars for %s: %w", models.ErrUpstreamFetchFailed, ticker, verr)
	}
	return archived, nil
}
