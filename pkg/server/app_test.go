package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/pkg/config"
	xhttp "FinSight/pkg/http"
	applogger "FinSight/pkg/logger"
)

type fakeScheduler struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *fakeScheduler) Start() error {
	s.started.Store(true)
	return s.startErr
}

func (s *fakeScheduler) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func newTestApp(sched *fakeScheduler) *App {
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = time.Second
	l := applogger.NewNop()
	srv := xhttp.NewServer(nil, l, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	return New(cfg, l, srv, WithScheduler(sched), WithConsumer(nil))
}

func TestRunStopsComponentsOnCancel(t *testing.T) {
	sched := &fakeScheduler{}
	app := newTestApp(sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, sched.started.Load, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, sched.stopped.Load())
}

func TestRunFailsWhenSchedulerCannotStart(t *testing.T) {
	boom := errors.New("bad cron spec")
	sched := &fakeScheduler{startErr: boom}

	err := newTestApp(sched).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, sched.stopped.Load(), "partial start is unwound")
}
