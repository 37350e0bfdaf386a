package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startDispatcher(t *testing.T, opts Options) (*Dispatcher, context.CancelFunc, <-chan error) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	d, err := New(opts)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return d, cancel, done
}

func stop(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestNew_RequiresHandler(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{Handler: HandlerFunc(func(context.Context, Event) error { return nil }), Concurrency: -1})
	require.Error(t, err)
}

func TestDispatcher_ConcurrentPushesAreAllHandled(t *testing.T) {
	const producers = 10
	var invocations atomic.Int32
	var wg sync.WaitGroup
	wg.Add(producers)

	var clearMu sync.Mutex
	var clears []QueueStats

	d, err := New(Options{
		Handler: HandlerFunc(func(context.Context, Event) error {
			invocations.Add(1)
			wg.Done()
			return nil
		}),
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	d.onClear = func(s QueueStats) {
		clearMu.Lock()
		clears = append(clears, s)
		clearMu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < producers; i++ {
		go func(id int64) {
			start.Wait()
			d.Push(NewEvent(KindNewTask, &model.Job{ID: id}, nil))
		}(int64(i + 1))
	}
	start.Done()

	waitOrFail(t, &wg)
	stop(t, cancel, done)

	assert.Equal(t, int32(producers), invocations.Load())
	stats := d.Stats()
	assert.Equal(t, uint64(producers), stats.Pushed)
	assert.Equal(t, uint64(producers), stats.Popped)
	assert.Equal(t, uint64(producers), stats.Processed)
	assert.Zero(t, stats.Queued)

	clearMu.Lock()
	defer clearMu.Unlock()
	require.NotEmpty(t, clears)
	for _, s := range clears {
		assert.Equal(t, s.Pushed, s.Popped, "signal lowered while events were still queued")
	}
}

func TestDispatcher_RequeuesNotReadyEvents(t *testing.T) {
	var attempts atomic.Int32
	var handled sync.WaitGroup
	handled.Add(1)

	d, cancel, done := startDispatcher(t, Options{
		Handler: HandlerFunc(func(_ context.Context, ev Event) error {
			if attempts.Add(1) < 3 {
				return ErrNotReady
			}
			assert.Equal(t, 2, ev.Requeues)
			handled.Done()
			return nil
		}),
		RequeueDelay: time.Millisecond,
	})

	d.Push(NewEvent(KindEvaluate, &model.Job{ID: 1}, nil))
	waitOrFail(t, &handled)
	stop(t, cancel, done)

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Requeued)
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(3), stats.Pushed)
}

func TestDispatcher_DropsAfterMaxRequeues(t *testing.T) {
	var attempts atomic.Int32
	d, cancel, done := startDispatcher(t, Options{
		Handler: HandlerFunc(func(context.Context, Event) error {
			attempts.Add(1)
			return ErrNotReady
		}),
		RequeueDelay: time.Millisecond,
		MaxRequeues:  2,
	})

	d.Push(NewEvent(KindNewTask, &model.Job{ID: 1}, nil))
	require.Eventually(t, func() bool { return d.Stats().Dropped == 1 }, 2*time.Second, 5*time.Millisecond)
	stop(t, cancel, done)

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, uint64(2), d.Stats().Requeued)
}

func TestDispatcher_RecoversFromPanicsAndFailures(t *testing.T) {
	var calls atomic.Int32
	d, cancel, done := startDispatcher(t, Options{
		Handler: HandlerFunc(func(_ context.Context, ev Event) error {
			calls.Add(1)
			switch ev.JobID() {
			case 1:
				panic("boom")
			case 2:
				return apperrors.Precondition("wrong phase")
			case 3:
				return errors.New("relay down")
			}
			return nil
		}),
		Concurrency: 2,
	})

	for id := int64(1); id <= 4; id++ {
		d.Push(NewEvent(KindNewTask, &model.Job{ID: id}, nil))
	}
	require.Eventually(t, func() bool { return calls.Load() == 4 && d.Stats().InFlight == 0 }, 2*time.Second, 5*time.Millisecond)
	stop(t, cancel, done)

	stats := d.Stats()
	assert.Equal(t, uint64(3), stats.Failed)
	assert.Equal(t, uint64(1), stats.Processed)
}

func TestDispatcher_RunReturnsOnCancel(t *testing.T) {
	_, cancel, done := startDispatcher(t, Options{
		Handler: HandlerFunc(func(context.Context, Event) error { return nil }),
	})
	stop(t, cancel, done)
}

func TestDispatcher_ShutdownReleasesWaitingEvents(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	d, cancel, done := startDispatcher(t, Options{
		Concurrency: 1,
		Handler: HandlerFunc(func(context.Context, Event) error {
			if calls.Add(1) == 1 {
				close(started)
				<-release
			}
			return nil
		}),
	})

	d.Push(NewEvent(KindNewTask, &model.Job{ID: 1}, nil))
	<-started
	d.Push(NewEvent(KindNewTask, &model.Job{ID: 2}, nil))
	require.Eventually(t, func() bool { return d.Stats().Popped == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), d.Stats().InFlight)

	cancel()
	close(release)
	stop(t, cancel, done)

	stats := d.Stats()
	assert.Zero(t, stats.InFlight)
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, int32(1), calls.Load())
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handlers")
	}
}
