package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmentio/kafka-go"

	"FinSight/pkg/logger"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type flakyHandler struct {
	failures int
	calls    int
	panics   bool
}

func (h *flakyHandler) Topic() string { return "retrain" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.failures {
		if h.panics {
			panic("boom")
		}
		return errors.New("transient")
	}
	return nil
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(logger.NewNop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestHandleRetriesUntilSuccess(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &flakyHandler{failures: 2}
	attempts, err := c.handle(context.Background(), h, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestHandleGivesUp(t *testing.T) {
	c := newTestConsumer(t, 2)
	h := &flakyHandler{failures: 10, panics: true}
	attempts, err := c.handle(context.Background(), h, nil)
	assert.ErrorContains(t, err, "panic")
	assert.Equal(t, 3, attempts)
}

func TestRegisterHandlerFirstWins(t *testing.T) {
	c := newTestConsumer(t, 0)
	first := &flakyHandler{}
	c.RegisterHandler(first)
	c.RegisterHandler(&flakyHandler{})
	assert.Same(t, first, c.handlers["retrain"])
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(logger.NewNop())
	assert.Error(t, err)
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(100*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
	assert.LessOrEqual(t, backoffWithJitter(100*time.Millisecond, time.Second, 1), 100*time.Millisecond)
}

func TestSettleDeadLettersExhaustedMessage(t *testing.T) {
	c := newTestConsumer(t, 0)
	dlq := &recordingWriter{}
	c.dlq = dlq
	c.cfg.DLQTopic = "retrain.dlq"
	m := kafka.Message{Topic: "retrain", Key: []byte("AAPL"), Value: []byte(`{"ticker":"AAPL"}`)}

	assert.True(t, c.settle(context.Background(), m, 1, nil))
	assert.Empty(t, dlq.msgs)

	assert.True(t, c.settle(context.Background(), m, 4, errors.New("training failed")))
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "retrain.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, m.Value, dlq.msgs[0].Value)
}

func TestSettleLeavesCanceledMessageForRedelivery(t *testing.T) {
	c := newTestConsumer(t, 0)
	dlq := &recordingWriter{}
	c.dlq = dlq
	c.cfg.DLQTopic = "retrain.dlq"
	m := kafka.Message{Topic: "retrain", Value: []byte(`{"ticker":"AAPL"}`)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, c.settle(ctx, m, 1, errors.New("training failed")))
	assert.False(t, c.settle(context.Background(), m, 1, fmt.Errorf("search: %w", context.Canceled)))
	assert.Empty(t, dlq.msgs, "shutdown does not dead-letter")
}
