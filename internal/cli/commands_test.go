package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/domain/models"
)

func run(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsValidateTickerBeforeLoading(t *testing.T) {
	for _, name := range []string{"train", "forecast", "sentiment"} {
		_, err := run(name, "BRK.B", "--config", "does-not-exist.yaml")
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, models.ErrInvalidTicker), name)
	}
}

func TestSentimentRejectsBadAsOf(t *testing.T) {
	_, err := run("sentiment", "AAPL", "--as-of", "last tuesday", "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --as-of")
}

func TestMissingConfigFileFails(t *testing.T) {
	_, err := run("forecast", "AAPL", "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestTickerArgumentRequired(t *testing.T) {
	_, err := run("forecast")
	assert.Error(t, err)
}
