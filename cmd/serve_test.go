package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-bot/internal/config"
	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/internal/service"
	"github.com/MimeLyc/subtitle-bot/internal/telegram"
)

type fakeScheduler struct {
	called bool
	err    error
}

func (f *fakeScheduler) Schedule(context.Context) error {
	f.called = true
	return f.err
}

type fakeCron struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return context.Background()
}

type fakeHTTP struct {
	listenCalled chan struct{}
	listenErr    error
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(string) error {
	close(f.listenCalled)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

type fakePoller struct {
	running chan struct{}
}

func (f *fakePoller) Run(ctx context.Context, _ telegram.Dispatcher) error {
	close(f.running)
	<-ctx.Done()
	return nil
}

type fakePool struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (f *fakePool) Start(context.Context, jobs.Executor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakePool) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func testComponents() (components, *fakeScheduler, *fakeCron, *fakeHTTP, *fakePoller, *fakePool) {
	s := &fakeScheduler{}
	c := &fakeCron{}
	h := newFakeHTTP()
	p := &fakePoller{running: make(chan struct{})}
	q := &fakePool{}
	return components{
		scheduler:  s,
		cron:       c,
		http:       h,
		bot:        p,
		dispatcher: &service.Handler{},
		queue:      q,
		executor:   func(context.Context, *jobs.Job) error { return nil },
	}, s, c, h, p, q
}

func TestRunWithComponents_StartsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}}
	comps, sched, cronEngine, httpSrv, bot, pool := testComponents()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, cfg, comps)
	}()

	for name, ch := range map[string]chan struct{}{"http server": httpSrv.listenCalled, "bot": bot.running} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not start", name)
		}
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, sched.called)
	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
	assert.True(t, pool.started)
	assert.True(t, pool.stopped)
}

func TestRunWithComponents_HTTPFailureStopsEverything(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}}
	comps, _, cronEngine, httpSrv, _, pool := testComponents()
	httpSrv.listenErr = errors.New("address already in use")

	err := runWithComponents(context.Background(), cfg, comps)
	require.ErrorContains(t, err, "address already in use")
	assert.True(t, cronEngine.stopped)
	assert.True(t, pool.stopped)
}

func TestRunWithComponents_ScheduleError(t *testing.T) {
	cfg := &config.Config{}
	comps, sched, cronEngine, _, _, _ := testComponents()
	sched.err = errors.New("invalid cron expression")

	err := runWithComponents(context.Background(), cfg, comps)
	require.ErrorContains(t, err, "schedule maintenance")
	assert.False(t, cronEngine.started)
}

func TestAcquireLock_SingleInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "subtitle-bot.lock")

	first, err := acquireLock(path)
	require.NoError(t, err)
	defer first.Unlock()

	_, err = acquireLock(path)
	require.ErrorContains(t, err, "already running")
}
