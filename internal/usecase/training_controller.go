package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	"FinSight/internal/services/features"
	"FinSight/internal/services/volatility"
	"FinSight/pkg/config"
	applogger "FinSight/pkg/logger"
)

// TrainerConfig drives the training cycle.
type TrainerConfig struct {
	Cadence     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	LockTTL     time.Duration
	Lookback    time.Duration
	Search      volatility.SearchConfig
}

// NewTrainerConfig maps the training and prices sections onto TrainerConfig.
func NewTrainerConfig(cfg *config.Config) TrainerConfig {
	search := volatility.DefaultSearchConfig()
	search.Iterations = cfg.Training.Search.Iterations
	search.Folds = cfg.Training.Search.Folds
	search.Seed = cfg.Training.Search.Seed
	search.MaxFeatures = cfg.Training.Search.MaxFeatures
	search.Workers = cfg.Training.Search.Workers
	return TrainerConfig{
		Cadence:     cfg.Training.Cadence,
		MaxAttempts: cfg.Training.MaxAttempts,
		Backoff:     cfg.Training.Backoff,
		LockTTL:     cfg.Training.LockTTL,
		Lookback:    cfg.Prices.Lookback,
		Search:      search,
	}
}

// slot is the serving state of one ticker. The model pointer is swapped, never
// mutated; training guards against a second in-process cycle. A slot exists
// only while a cycle runs or once a model has been adopted.
type slot struct {
	model    atomic.Pointer[volatility.Model]
	training atomic.Bool
}

// TrainingController owns the Stale -> Training -> Ready lifecycle per ticker.
type TrainingController struct {
	prices  domrepo.PriceLoader
	store   domrepo.ModelStore
	lock    domrepo.TrainingLock
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     TrainerConfig
	now     func() time.Time

	mu    sync.Mutex
	slots map[string]*slot

	bg       context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

func NewTrainingController(
	prices domrepo.PriceLoader,
	store domrepo.ModelStore,
	lock domrepo.TrainingLock,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg TrainerConfig,
) *TrainingController {
	bg, cancel := context.WithCancel(context.Background())
	return &TrainingController{
		prices:   prices,
		store:    store,
		lock:     lock,
		events:   events,
		metrics:  metrics,
		l:        l,
		cfg:      cfg,
		now:      time.Now,
		slots:    make(map[string]*slot),
		bg:       bg,
		bgCancel: cancel,
	}
}

func (c *TrainingController) lookup(ticker string) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[ticker]
}

// begin claims the in-process training flag for ticker.
func (c *TrainingController) begin(ticker string) (*slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[ticker]
	if !ok {
		s = &slot{}
		c.slots[ticker] = s
	}
	return s, s.training.CompareAndSwap(false, true)
}

// end releases the training flag and drops a slot that never got a model.
func (c *TrainingController) end(ticker string, s *slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.training.Store(false)
	if s.model.Load() == nil && c.slots[ticker] == s {
		delete(c.slots, ticker)
	}
}

// adopt installs a loaded model unless a newer one is already serving.
func (c *TrainingController) adopt(ticker string, m *volatility.Model) *volatility.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[ticker]
	if !ok {
		s = &slot{}
		c.slots[ticker] = s
	}
	s.model.CompareAndSwap(nil, m)
	return s.model.Load()
}

// Current returns the last Ready model. A cold slot is filled from the store.
func (c *TrainingController) Current(ctx context.Context, ticker string) (*volatility.Model, error) {
	if s := c.lookup(ticker); s != nil {
		if m := s.model.Load(); m != nil {
			return m, nil
		}
	}
	meta, err := c.store.Load(ctx, ticker)
	if err != nil {
		return nil, err
	}
	m, err := volatility.Load(meta)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", ticker, err)
	}
	return c.adopt(ticker, m), nil
}

// IsStale reports whether meta is missing, older than the cadence, or built
// for another feature schema.
func (c *TrainingController) IsStale(meta *models.TrainedModel) bool {
	if meta == nil {
		return true
	}
	if c.now().Sub(meta.TrainedAt) > c.cfg.Cadence {
		return true
	}
	return meta.SchemaVersion != features.SchemaVersion || features.CheckSchema(meta.FeatureOrder) != nil
}

// State reports the lifecycle state of ticker.
func (c *TrainingController) State(ctx context.Context, ticker string) models.ModelState {
	if s := c.lookup(ticker); s != nil && s.training.Load() {
		return models.ModelTraining
	}
	m, err := c.Current(ctx, ticker)
	if err != nil || c.IsStale(m.Meta()) {
		return models.ModelStale
	}
	return models.ModelReady
}

// Train runs one cycle synchronously. A cycle already running in this or
// another process fails fast with ErrTrainingInProgress.
func (c *TrainingController) Train(ctx context.Context, ticker string) (*models.TrainedModel, error) {
	s, ok := c.begin(ticker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTrainingInProgress, ticker)
	}
	defer c.end(ticker, s)
	return c.train(ctx, ticker, s)
}

// TriggerRetrain starts a background cycle unless one is already running.
func (c *TrainingController) TriggerRetrain(ticker string) bool {
	s, ok := c.begin(ticker)
	if !ok {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.end(ticker, s)
		_, err := c.train(c.bg, ticker, s)
		switch {
		case err == nil, errors.Is(err, models.ErrTrainingInProgress), c.bg.Err() != nil:
		default:
			c.l.Error("background training failed", applogger.Ticker(ticker), applogger.Error(err))
		}
	}()
	return true
}

// RefreshAll trains every ticker that is not Ready, one after another.
func (c *TrainingController) RefreshAll(ctx context.Context, tickers []string) error {
	var errs []error
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.State(ctx, t) != models.ModelStale {
			continue
		}
		if _, err := c.Train(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close cancels background cycles and waits for them.
func (c *TrainingController) Close() {
	c.bgCancel()
	c.wg.Wait()
}

// train assumes the caller holds s.training.
func (c *TrainingController) train(ctx context.Context, ticker string, s *slot) (*models.TrainedModel, error) {
	ok, err := c.lock.Acquire(ctx, ticker, c.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrTrainingFailed, ticker, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s held by another process", models.ErrTrainingInProgress, ticker)
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := c.lock.Release(rctx, ticker); err != nil {
			c.l.Warn("release training lock", applogger.Ticker(ticker), applogger.Error(err))
		}
	}()

	start := c.now()
	attempts := max(c.cfg.MaxAttempts, 1)
	var (
		lastErr error
		made    int
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		m, err := c.trainOnce(ctx, ticker)
		if err == nil {
			s.model.Store(m)
			c.succeeded(ctx, m.Meta(), attempt, time.Since(start))
			return m.Meta(), nil
		}
		lastErr = err
		c.l.Warn("training attempt failed",
			applogger.Ticker(ticker),
			applogger.Int("attempt", attempt),
			applogger.Error(err),
		)
		if errors.Is(err, models.ErrInsufficientHistory) || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			select {
			case <-time.After(time.Duration(attempt) * c.cfg.Backoff):
			case <-ctx.Done():
			}
		}
	}

	err = fmt.Errorf("%w: %s: %w", models.ErrTrainingFailed, ticker, lastErr)
	// Cancellation is a shutdown; no failure is recorded.
	if ctx.Err() != nil {
		c.l.Warn("training canceled", applogger.Ticker(ticker), applogger.Int("attempt", made))
		return nil, err
	}
	c.failed(ctx, ticker, err, made, time.Since(start))
	return nil, err
}

func (c *TrainingController) trainOnce(ctx context.Context, ticker string) (*volatility.Model, error) {
	bars, err := c.prices.LoadDaily(ctx, ticker, c.cfg.Lookback)
	if err != nil {
		return nil, err
	}
	vectors, err := features.Compute(bars)
	if err != nil {
		return nil, err
	}
	examples, _, err := features.BuildExamples(vectors)
	if err != nil {
		return nil, err
	}
	m, err := volatility.Train(ctx, ticker, features.SchemaVersion, examples, c.cfg.Search, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, m.Meta()); err != nil {
		return nil, fmt.Errorf("persist model: %w", err)
	}
	return m, nil
}

func (c *TrainingController) succeeded(ctx context.Context, meta *models.TrainedModel, attempts int, took time.Duration) {
	c.metrics.RecordTraining(meta.Ticker, "ok", took.Seconds())
	c.metrics.RecordModelScore(meta.Ticker, meta.R2Score, meta.MAE)
	c.l.Info("model trained",
		applogger.Ticker(meta.Ticker),
		applogger.String("model_version", meta.Version),
		applogger.Float64("r2", meta.R2Score),
		applogger.Float64("mae", meta.MAE),
		applogger.Int("samples", meta.TrainingSamples),
		applogger.Any("best_params", meta.BestParams),
		applogger.Int("attempt", attempts),
		applogger.Duration("duration_ms", took),
	)
	c.publish(ctx, models.TrainingEvent{
		Type:         models.EventModelTrained,
		Ticker:       meta.Ticker,
		ModelVersion: meta.Version,
		R2Score:      meta.R2Score,
		MAE:          meta.MAE,
		TrainedAt:    meta.TrainedAt,
		Attempts:     attempts,
	})
}

func (c *TrainingController) failed(ctx context.Context, ticker string, err error, attempts int, took time.Duration) {
	c.metrics.RecordTraining(ticker, "failed", took.Seconds())
	c.metrics.RecordError("training")
	c.l.Error("training failed", applogger.Ticker(ticker), applogger.Error(err))
	c.publish(ctx, models.TrainingEvent{
		Type:     models.EventTrainingFailed,
		Ticker:   ticker,
		Attempts: attempts,
		Error:    err.Error(),
	})
}

func (c *TrainingController) publish(ctx context.Context, ev models.TrainingEvent) {
	if err := c.events.PublishTraining(context.WithoutCancel(ctx), ev); err != nil {
		c.metrics.RecordError("publish_event")
		c.l.Warn("publish training event", applogger.Ticker(ev.Ticker), applogger.Error(err))
	}
}
