package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/metrics"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/statsd"
)

const (
	DefaultRequeueDelay = 5 * time.Second
	DefaultMaxRequeues  = 20
)

// Options configures a Dispatcher.
type Options struct {
	Handler      Handler       // Required: processes each event
	Concurrency  int           // Max in-flight handlers (0 = unbounded)
	RequeueDelay time.Duration // Delay before an ErrNotReady event is re-enqueued
	MaxRequeues  int           // Requeues allowed per event before it is dropped
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// Stats is a point-in-time view of dispatcher activity.
type Stats struct {
	Queued    int    `json:"queued"`
	InFlight  int64  `json:"in_flight"`
	Pushed    uint64 `json:"pushed"`
	Popped    uint64 `json:"popped"`
	Processed uint64 `json:"processed"`
	Requeued  uint64 `json:"requeued"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Dispatcher pulls events off a Queue and runs the handler for each on the
// worker pool.
type Dispatcher struct {
	queue        *Queue
	pool         *Pool
	handler      Handler
	requeueDelay time.Duration
	maxRequeues  int
	logger       *slog.Logger
	metrics      statsd.Sink

	inFlight  atomic.Int64
	processed atomic.Uint64
	requeued  atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64

	// onClear is invoked with the queue counters every time the wake signal
	// is lowered. Used by tests.
	onClear func(QueueStats)

	timers sync.WaitGroup
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Handler == nil {
		return nil, errors.New("dispatch: handler is required")
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("dispatch: concurrency must be >= 0, got %d", opts.Concurrency)
	}
	if opts.RequeueDelay <= 0 {
		opts.RequeueDelay = DefaultRequeueDelay
	}
	if opts.MaxRequeues <= 0 {
		opts.MaxRequeues = DefaultMaxRequeues
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue:        NewQueue(),
		pool:         NewPool(opts.Concurrency),
		handler:      opts.Handler,
		requeueDelay: opts.RequeueDelay,
		maxRequeues:  opts.MaxRequeues,
		logger:       logger.With("component", "dispatcher"),
		metrics:      opts.Metrics,
	}, nil
}

// Push enqueues ev. Safe for concurrent use by any number of sources.
func (d *Dispatcher) Push(ev Event) {
	depth := d.queue.Push(ev)
	metrics.EmitQueueDepth(d.metrics, depth)
}

// Run processes events until ctx is cancelled, then waits for in-flight
// handlers and pending requeue timers to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "dispatcher started")
	defer func() {
		d.pool.Wait()
		d.timers.Wait()
		d.logger.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.queue.Signal():
		}
		d.drainUntilEmpty(ctx)
	}
}

func (d *Dispatcher) drainUntilEmpty(ctx context.Context) {
	for {
		for _, ev := range d.queue.Drain() {
			d.spawn(ctx, ev)
		}
		stats, cleared := d.queue.ClearIfEmpty()
		if cleared {
			metrics.EmitQueueDepth(d.metrics, 0)
			if d.onClear != nil {
				d.onClear(stats)
			}
			return
		}
	}
}

// spawn counts ev as in flight from the moment it leaves the queue until its
// handler returns or the pool gives up waiting for a slot.
func (d *Dispatcher) spawn(ctx context.Context, ev Event) {
	d.inFlight.Add(1)
	d.pool.GoOrSkip(ctx, func(ctx context.Context) {
		defer d.inFlight.Add(-1)
		d.process(ctx, ev)
	}, func() {
		d.inFlight.Add(-1)
		d.dropped.Add(1)
		d.logger.Warn("event abandoned at shutdown", "event_id", ev.ID, "job_id", ev.JobID())
	})
}

func (d *Dispatcher) process(ctx context.Context, ev Event) {
	start := time.Now()
	log := d.logger.With("event_id", ev.ID, "kind", string(ev.Kind), "job_id", ev.JobID())

	err := d.invoke(ctx, ev)
	result := metrics.ResultSuccess

	switch {
	case err == nil:
		d.processed.Add(1)
	case errors.Is(err, ErrNotReady):
		if ev.Requeues >= d.maxRequeues {
			d.dropped.Add(1)
			result = metrics.ResultRejected
			log.WarnContext(ctx, "dropping event after max requeues", "requeues", ev.Requeues)
			break
		}
		d.requeued.Add(1)
		result = metrics.ResultRequeued
		log.DebugContext(ctx, "event not ready, requeueing", "delay", d.requeueDelay)
		d.requeueLater(ctx, ev)
	case errors.Is(err, errHandlerPanic):
		d.failed.Add(1)
		result = metrics.ResultPanic
		log.ErrorContext(ctx, "handler panicked", "error", err)
	case apperrors.IsRoutine(err):
		d.failed.Add(1)
		result = metrics.ResultRejected
		log.InfoContext(ctx, "event skipped", "reason", err.Error())
	default:
		d.failed.Add(1)
		result = metrics.ResultError
		log.ErrorContext(ctx, "event handler failed", "error", err)
	}

	metrics.EmitDispatchEvent(d.metrics, metrics.DispatchMetric{
		Kind:     string(ev.Kind),
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})
}

var errHandlerPanic = errors.New("dispatch: handler panic")

func (d *Dispatcher) invoke(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	return d.handler.Handle(ctx, ev)
}

func (d *Dispatcher) requeueLater(ctx context.Context, ev Event) {
	ev.Requeues++
	d.timers.Add(1)
	go func() {
		defer d.timers.Done()
		t := time.NewTimer(d.requeueDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			d.Push(ev)
		}
	}()
}

// Stats returns a snapshot of dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	qs := d.queue.Stats()
	return Stats{
		Queued:    d.queue.Len(),
		InFlight:  d.inFlight.Load(),
		Pushed:    qs.Pushed,
		Popped:    qs.Popped,
		Processed: d.processed.Load(),
		Requeued:  d.requeued.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
