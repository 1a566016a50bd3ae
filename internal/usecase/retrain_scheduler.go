package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	applogger "FinSight/pkg/logger"
)

// Refresher trains every stale ticker of a list.
type Refresher interface {
	RefreshAll(ctx context.Context, tickers []string) error
}

var _ Refresher = (*TrainingController)(nil)

// RetrainScheduler runs RefreshAll on a cron schedule. Runs do not overlap.
type RetrainScheduler struct {
	cron    *cron.Cron
	refresh Refresher
	tickers []string
	spec    string
	warm    bool
	l       *applogger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	warmWG  sync.WaitGroup
}

func NewRetrainScheduler(refresh Refresher, tickers []string, spec string, warmStart bool, l *applogger.Logger) *RetrainScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RetrainScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		refresh: refresh,
		tickers: tickers,
		spec:    spec,
		warm:    warmStart,
		l:       l,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the job and, with warm start, kicks off one run immediately.
func (s *RetrainScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	if s.warm {
		s.warmWG.Add(1)
		go func() {
			defer s.warmWG.Done()
			s.run()
		}()
	}
	s.l.Info("retrain scheduler started",
		applogger.String("schedule", s.spec),
		applogger.Strings("tickers", s.tickers),
		applogger.Bool("warm_start", s.warm),
	)
	return nil
}

// Stop cancels a running refresh and waits for the job to return.
func (s *RetrainScheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.warmWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RetrainScheduler) run() {
	if err := s.refresh.RefreshAll(s.ctx, s.tickers); err != nil {
		s.l.Error("scheduled refresh", applogger.Error(err))
	}
}
