package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "FinSight/internal/repository"
	"FinSight/pkg/config"
	applogger "FinSight/pkg/logger"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Backend = "memory"
	cfg.Log.Level = "error"
	return cfg
}

func TestInitializeServicesWithoutInfrastructure(t *testing.T) {
	svc, cleanup, err := InitializeServices(memoryConfig())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, svc.Controller)
	assert.NotNil(t, svc.Forecast)
	assert.NotNil(t, svc.Sentiment)
	assert.NotNil(t, svc.Prediction)
}

func TestOptionalBackendsStayNil(t *testing.T) {
	cfg := memoryConfig()
	l := applogger.NewNop()

	ch, cleanup, err := ProvideClickHouseClient(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, ch)

	archive, err := ProvideBarArchive(ch, l)
	require.NoError(t, err)
	assert.Nil(t, archive)
	assert.Nil(t, ProvideForecastHistory(archive), "nil archive must not become a typed nil interface")

	_, isYahoo := ProvidePriceLoader(cfg, archive, l).(*internalrepo.YahooPriceLoader)
	assert.True(t, isYahoo)

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	pub, closePub := ProvideEventPublisher(cfg, producer, l)
	defer closePub()
	assert.IsType(t, internalrepo.NopEventPublisher{}, pub)

	consumer, err := ProvideKafkaConsumer(cfg, l)
	require.NoError(t, err)
	assert.Nil(t, consumer)
}
