package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"FinSight/internal/domain/models"
	pkgch "FinSight/pkg/clickhouse"
	applogger "FinSight/pkg/logger"
)

// setupArchive starts a throwaway ClickHouse server. Skipped in short mode and
// when no container runtime is reachable.
func setupArchive(t *testing.T) *CHBarArchive {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "finsight", "CLICKHOUSE_USER": "default", "CLICKHOUSE_PASSWORD": ""},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(90*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	ch, err := pkgch.NewClient(
		pkgch.WithHost(host),
		pkgch.WithPort(port.Int()),
		pkgch.WithDatabase("finsight"),
		pkgch.WithCredentials("default", ""),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	archive := NewCHBarArchive(ch, applogger.NewNop())
	require.NoError(t, archive.Init(ctx))
	return archive
}

func TestCHBarArchive_Integration(t *testing.T) {
	archive := setupArchive(t)
	ctx := context.Background()

	bars := dailyBars(5)
	require.NoError(t, archive.SaveBars(ctx, "AAPL", bars))

	revised := bars[4]
	revised.Close = 99
	require.NoError(t, archive.SaveBars(ctx, "AAPL", []models.PriceBar{revised}))

	got, err := archive.LoadBars(ctx, "AAPL", bars[1].Date, bars[4].Date)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[0].Date.Equal(bars[1].Date))
	assert.InDelta(t, 99, got[3].Close, 1e-9)

	require.NoError(t, archive.RecordForecast(ctx, &models.ForecastResult{
		Ticker: "AAPL", AsOf: time.Now(), Predicted: 0.021, Current: 0.02, ChangePct: 5,
		Confidence: models.ConfidenceMedium, ModelVersion: "v1",
	}))
}
