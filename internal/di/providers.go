package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FinSight/internal/domain/repository"
	domsvc "FinSight/internal/domain/service"
	"FinSight/internal/handler/api"
	internalrepo "FinSight/internal/repository"
	"FinSight/internal/services/analytics"
	"FinSight/internal/services/sentiment"
	"FinSight/internal/usecase"
	"FinSight/pkg/cache"
	pkgch "FinSight/pkg/clickhouse"
	"FinSight/pkg/config"
	xhttp "FinSight/pkg/http"
	"FinSight/pkg/http/middleware"
	pkgkafka "FinSight/pkg/kafka"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/metrics"
	"FinSight/pkg/server"
)

// Services exposes the use cases to the CLI without the HTTP surface.
type Services struct {
	Config     *config.Config
	Logger     *applogger.Logger
	Controller *usecase.TrainingController
	Forecast   *usecase.ForecastUseCase
	Sentiment  *usecase.SentimentUseCase
	Prediction *usecase.PredictionUseCase
}

// ProvideLogger builds the app logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideCache selects the model store backend.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	var (
		c   cache.Service
		err error
	)
	switch cfg.Store.Backend {
	case "memory":
		c = cache.NewMemoryCache()
	default:
		var rc *cache.RedisCache
		rc, err = cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize),
			cache.WithRedisTimeouts(cfg.Redis.DialTimeout, cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout),
			cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		c = rc
		if cfg.Store.L1TTL > 0 {
			c = cache.NewLayeredCache(rc, cfg.Store.L1TTL)
		}
	}
	l.Info("model store ready", applogger.String("backend", cfg.Store.Backend), applogger.Duration("l1_ttl", cfg.Store.L1TTL))
	return c, func() {
		if err := c.Close(); err != nil {
			l.Warn("close cache", applogger.Error(err))
		}
	}, nil
}

// ProvideClickHouseClient connects when clickhouse is enabled; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideBarArchive applies the archive schema; nil without clickhouse.
func ProvideBarArchive(ch *pkgch.Client, l *applogger.Logger) (*internalrepo.CHBarArchive, error) {
	if ch == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHBarArchive(ch, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvidePriceLoader reads Yahoo, archiving through clickhouse when present.
func ProvidePriceLoader(cfg *config.Config, archive *internalrepo.CHBarArchive, l *applogger.Logger) domrepo.PriceLoader {
	yahoo := internalrepo.NewYahooPriceLoader(cfg.Prices, l)
	if archive == nil {
		return yahoo
	}
	return internalrepo.NewArchivedPriceLoader(yahoo, archive, l)
}

// ProvideForecastHistory returns a nil interface, not a typed nil, without clickhouse.
func ProvideForecastHistory(archive *internalrepo.CHBarArchive) domrepo.ForecastHistory {
	if archive == nil {
		return nil
	}
	return archive
}

// ProvideKafkaProducer creates a Kafka producer; nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes training events to kafka, or drops them.
// The cleanup closes the producer.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) (domrepo.EventPublisher, func()) {
	var pub domrepo.EventPublisher = internalrepo.NopEventPublisher{}
	if producer != nil {
		pub = internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("close event publisher", applogger.Error(err))
		}
	}
}

// ProvideTrainingController wires the per-ticker training lifecycle. The
// cleanup waits for background cycles.
func ProvideTrainingController(
	cfg *config.Config,
	prices domrepo.PriceLoader,
	c cache.Service,
	events domrepo.EventPublisher,
	rec *metrics.Recorder,
	l *applogger.Logger,
) (*usecase.TrainingController, func()) {
	ctrl := usecase.NewTrainingController(
		prices,
		internalrepo.NewCacheModelStore(c),
		internalrepo.NewCacheTrainingLock(c, l),
		events,
		rec,
		l,
		usecase.NewTrainerConfig(cfg),
	)
	return ctrl, ctrl.Close
}

// ProvideHeadlineSource creates the Google News RSS source.
func ProvideHeadlineSource(cfg *config.Config, l *applogger.Logger) domrepo.HeadlineSource {
	return internalrepo.NewGoogleNewsSource(cfg.News, l)
}

// ProvideClassifier creates the HTTP sentiment classifier.
func ProvideClassifier(cfg *config.Config) domsvc.SentimentClassifier {
	return analytics.NewHTTPSentimentClassifier(cfg.Classifier)
}

// ProvideAggregator maps the sentiment section onto the aggregator.
func ProvideAggregator(cfg *config.Config) *sentiment.Aggregator {
	return sentiment.NewAggregator(sentiment.Config{
		WindowHours:      cfg.Sentiment.WindowHours,
		DecayConstant:    cfg.Sentiment.DecayConstant,
		MaxArticles:      cfg.Sentiment.MaxArticles,
		ContextHeadlines: cfg.Sentiment.ContextHeadlines,
	})
}

func ProvideForecastUseCase(
	cfg *config.Config,
	ctrl *usecase.TrainingController,
	prices domrepo.PriceLoader,
	history domrepo.ForecastHistory,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(ctrl, prices, history, rec, l, cfg.Prices.Lookback)
}

func ProvideSentimentUseCase(
	news domrepo.HeadlineSource,
	classifier domsvc.SentimentClassifier,
	agg *sentiment.Aggregator,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.SentimentUseCase {
	return usecase.NewSentimentUseCase(news, classifier, agg, rec, l)
}

func ProvidePredictionUseCase(f *usecase.ForecastUseCase, s *usecase.SentimentUseCase) *usecase.PredictionUseCase {
	return usecase.NewPredictionUseCase(f, s)
}

// ProvideKafkaConsumer creates the retrain request consumer; nil when kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaRetrainHandler handles the retrain request topic.
func ProvideKafkaRetrainHandler(cfg *config.Config, ctrl *usecase.TrainingController, rec *metrics.Recorder) *usecase.KafkaRetrainHandler {
	return usecase.NewKafkaRetrainHandler(cfg.Kafka.RetrainTopic, ctrl, rec)
}

// ProvideRetrainScheduler keeps the configured tickers fresh.
func ProvideRetrainScheduler(cfg *config.Config, ctrl *usecase.TrainingController, l *applogger.Logger) *usecase.RetrainScheduler {
	return usecase.NewRetrainScheduler(ctrl, cfg.Tickers, cfg.Training.Schedule, cfg.Training.WarmStart, l)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	p *usecase.PredictionUseCase,
	f *usecase.ForecastUseCase,
	s *usecase.SentimentUseCase,
	ctrl *usecase.TrainingController,
) *api.PredictionEchoHandler {
	var limiter *middleware.KeyedLimiter
	if cfg.Server.PredictRate > 0 {
		limiter = middleware.NewKeyedLimiter(cfg.Server.PredictRate, cfg.Server.PredictBurst)
	}
	return api.NewPredictionEchoHandler(l, p, f, s, ctrl, cfg.Tickers, limiter)
}

// ProvideHTTPServer builds the Echo server with CORS and metrics.
func ProvideHTTPServer(cfg *config.Config, h *api.PredictionEchoHandler, rec *metrics.Recorder, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORSOrigins(cfg.Server.AllowedOrigins...),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, rec.Handler(), rec))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	sched *usecase.RetrainScheduler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRetrainHandler,
) *server.App {
	opts := []server.Option{server.WithScheduler(sched)}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	return server.New(cfg, l, srv, opts...)
}
