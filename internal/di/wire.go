//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinSight/pkg/config"
	"FinSight/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideCache,
	ProvideClickHouseClient,
	ProvideBarArchive,
	ProvidePriceLoader,
	ProvideForecastHistory,
	ProvideKafkaProducer,
	ProvideEventPublisher,
)

var usecaseSet = wire.NewSet(
	ProvideTrainingController,
	ProvideHeadlineSource,
	ProvideClassifier,
	ProvideAggregator,
	ProvideForecastUseCase,
	ProvideSentimentUseCase,
	ProvidePredictionUseCase,
)

// InitializeApp wires the long-running service.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		usecaseSet,

		// Background workers
		ProvideKafkaConsumer,
		ProvideKafkaRetrainHandler,
		ProvideRetrainScheduler,

		// HTTP
		ProvideHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeServices wires the use cases for one-shot CLI commands.
func InitializeServices(cfg *config.Config) (*Services, func(), error) {
	wire.Build(
		infraSet,
		usecaseSet,
		wire.Struct(new(Services), "*"),
	)
	return nil, nil, nil
}
