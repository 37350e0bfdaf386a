// Package txpipeline turns abstract contract calls into confirmed on-chain
// results. One attempt is one submit followed by status polls of that
// handle until the relay reports a final status; failed attempts are
// retried under a RetryPolicy until the budget is spent. A handle that is
// still in flight is never resubmitted.
package txpipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/metrics"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/notify"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/statsd"
)

// TracerName is the instrumentation scope used for attempt spans.
const TracerName = "acp/txpipeline"

// confirmedTTL is how long a final status stays cached per handle.
const confirmedTTL = time.Hour

// ErrRelayRequired is returned by New when no relay is configured.
var ErrRelayRequired = errors.New("txpipeline: chain relay is required")

// StatusError reports a call the relay confirmed with a non-success status.
type StatusError struct {
	Handle core.Handle
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("call %s failed with status %d", e.Handle, e.Status)
}

// InFlightError reports a handle that was still in flight when its poll
// budget ran out. The call may still land, so it is not resubmitted.
type InFlightError struct {
	Handle core.Handle
	Status int
	Polls  int
}

func (e *InFlightError) Error() string {
	return fmt.Sprintf("call %s still in flight (status %d) after %d poll(s)", e.Handle, e.Status, e.Polls)
}

// FailureNotifier receives calls that failed terminally.
type FailureNotifier interface {
	NotifyTransactionFailure(ctx context.Context, payload notify.TransactionFailurePayload)
}

// Observers bundles the optional observability hooks.
type Observers struct {
	Journal  core.TransactionJournal
	Notifier FailureNotifier
	Metrics  statsd.Sink
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// Options configures a Pipeline.
type Options struct {
	Relay     core.ChainRelay // Required
	Policy    RetryPolicy
	Observers Observers
}

// Result is a confirmed call.
type Result struct {
	CallID   string
	Call     core.Call
	Handle   core.Handle
	Status   *core.CallStatus
	Attempts int
}

// TxHash returns the transaction hash of the first receipt, or "".
func (r *Result) TxHash() string {
	if r == nil {
		return ""
	}
	return r.Status.TxHash()
}

// Pipeline submits calls and confirms them with bounded retries.
type Pipeline struct {
	relay  core.ChainRelay
	policy RetryPolicy
	obs    Observers
	logger *slog.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	confirmed map[core.Handle]confirmedEntry
	lastPrune time.Time
	now       func() time.Time
}

type confirmedEntry struct {
	status *core.CallStatus
	at     time.Time
}

// New constructs a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Relay == nil {
		return nil, ErrRelayRequired
	}
	logger := opts.Observers.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Observers.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Pipeline{
		relay:     opts.Relay,
		policy:    opts.Policy.normalize(),
		obs:       opts.Observers,
		logger:    logger.With("component", "txpipeline"),
		tracer:    tracer,
		confirmed: make(map[core.Handle]confirmedEntry),
		now:       time.Now,
	}, nil
}

// Execute submits call and waits for its result.
func (p *Pipeline) Execute(ctx context.Context, call core.Call) (*Result, error) {
	return p.Submit(ctx, call).Wait(ctx)
}

// Submit starts the attempt loop for call in the background. The loop runs
// under ctx; Wait only bounds how long the caller blocks.
func (p *Pipeline) Submit(ctx context.Context, call core.Call) *Pending {
	return p.SubmitChecked(ctx, call, nil)
}

// SubmitChecked is Submit with a check applied to the confirmed status. A
// check error is terminal: the call already landed, so it is never retried.
func (p *Pipeline) SubmitChecked(ctx context.Context, call core.Call, check func(*core.CallStatus) error) *Pending {
	pending := newPending(uuid.NewString(), call)
	go func() {
		res, err := p.run(ctx, pending.CallID, call, check)
		pending.resolve(res, err)
	}()
	return pending
}

// Confirm asks the relay for the status of handle. Finished statuses are
// cached for an hour, so repeated confirmation of the same handle does not
// reach the relay again.
func (p *Pipeline) Confirm(ctx context.Context, handle core.Handle) (*core.CallStatus, error) {
	if cached, ok := p.cachedStatus(handle); ok {
		return cached, nil
	}

	status, err := p.relay.Confirm(ctx, handle)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("relay returned no status for %s", handle)
	}
	if finished(status) {
		p.cacheStatus(handle, status)
	}
	return status, nil
}

func (p *Pipeline) cachedStatus(handle core.Handle) (*core.CallStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.confirmed[handle]
	if !ok || p.now().Sub(entry.at) > confirmedTTL {
		return nil, false
	}
	return entry.status, true
}

// cacheStatus stores a final status and drops expired entries, at most
// once per minute.
func (p *Pipeline) cacheStatus(handle core.Handle, status *core.CallStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.confirmed[handle] = confirmedEntry{status: status, at: now}
	if now.Sub(p.lastPrune) < time.Minute {
		return
	}
	p.lastPrune = now
	for h, entry := range p.confirmed {
		if now.Sub(entry.at) > confirmedTTL {
			delete(p.confirmed, h)
		}
	}
}

// awaitFinal polls handle until its status is final or the poll budget is
// spent.
func (p *Pipeline) awaitFinal(ctx context.Context, handle core.Handle) (*core.CallStatus, int, error) {
	for polls := 1; ; polls++ {
		status, err := p.Confirm(ctx, handle)
		if err != nil {
			return nil, polls, err
		}
		if finished(status) {
			return status, polls, nil
		}
		if polls >= p.policy.MaxPolls {
			return status, polls, &InFlightError{Handle: handle, Status: status.Status, Polls: polls}
		}
		timer := time.NewTimer(p.policy.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return status, polls, ctx.Err()
		case <-timer.C:
		}
	}
}

// finished reports whether status will not change anymore. Anything below
// 200 is still in flight.
func finished(status *core.CallStatus) bool {
	return status.Status >= core.StatusConfirmed
}

func (p *Pipeline) run(
	ctx context.Context,
	callID string,
	call core.Call,
	check func(*core.CallStatus) error,
) (*Result, error) {
	attempts := 0
	var permanent error
	res, err := backoff.Retry(ctx, func() (*Result, error) {
		attempts++
		res, err := p.attempt(ctx, callID, call, attempts)
		var inFlight *InFlightError
		if errors.As(err, &inFlight) {
			permanent = apperrors.Wrapf(err, apperrors.ErrCodeTransactionFailed,
				"%s unconfirmed after %d attempt(s)", call.Method, attempts)
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			return nil, err
		}
		if check != nil {
			if cerr := check(res.Status); cerr != nil {
				permanent = cerr
				return nil, backoff.Permanent(cerr)
			}
		}
		return res, nil
	},
		backoff.WithBackOff(&policyBackOff{policy: p.policy}),
		backoff.WithMaxTries(uint(p.policy.MaxAttempts)),
	)
	if err == nil {
		res.Attempts = attempts
		return res, nil
	}

	switch {
	case permanent != nil:
		err = permanent
	case ctx.Err() != nil:
		err = apperrors.Wrapf(err, apperrors.ErrCodeCanceled, "%s abandoned after %d attempt(s)", call.Method, attempts)
	default:
		err = apperrors.Wrapf(err, apperrors.ErrCodeTransactionFailed,
			"%s failed after %d attempt(s)", call.Method, attempts)
	}
	p.logger.ErrorContext(ctx, "transaction failed",
		"call_id", callID,
		"method", call.Method,
		"attempts", attempts,
		"error", err,
	)
	p.notifyFailure(ctx, callID, call, attempts, err)
	return nil, err
}

func (p *Pipeline) attempt(ctx context.Context, callID string, call core.Call, n int) (res *Result, err error) {
	ctx, span := p.tracer.Start(ctx, "tx."+call.Method, trace.WithAttributes(
		attribute.String("acp.tx.call_id", callID),
		attribute.String("acp.tx.method", call.Method),
		attribute.String("acp.tx.target", call.Target),
		attribute.Int("acp.tx.attempt", n),
	))
	start := time.Now()
	entry := &model.TxAttempt{
		ID:      uuid.NewString(),
		CallID:  callID,
		Method:  call.Method,
		Target:  call.Target,
		Attempt: n,
	}
	defer func() {
		entry.CreatedAt = start.UTC()
		p.finishAttempt(ctx, span, entry, time.Since(start), err)
	}()

	handle, err := p.relay.Submit(ctx, call)
	if err != nil {
		entry.Result = model.TxResultError
		return nil, fmt.Errorf("submit %s: %w", call.Method, err)
	}
	entry.Handle = string(handle)
	span.SetAttributes(attribute.String("acp.tx.handle", string(handle)))

	status, polls, err := p.awaitFinal(ctx, handle)
	span.SetAttributes(attribute.Int("acp.tx.polls", polls))
	if status != nil {
		entry.Status = status.Status
	}
	if err != nil {
		entry.Result = model.TxResultError
		return nil, fmt.Errorf("confirm %s: %w", call.Method, err)
	}
	if !status.Confirmed() {
		entry.Result = model.TxResultRejected
		return nil, &StatusError{Handle: handle, Status: status.Status}
	}
	entry.Result = model.TxResultConfirmed
	return &Result{CallID: callID, Call: call, Handle: handle, Status: status}, nil
}

func (p *Pipeline) finishAttempt(
	ctx context.Context,
	span trace.Span,
	entry *model.TxAttempt,
	elapsed time.Duration,
	err error,
) {
	defer span.End()

	result := metrics.ResultSuccess
	if err != nil {
		entry.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result = metrics.ResultError
		if entry.Result == model.TxResultRejected {
			result = metrics.ResultRejected
		}
		p.logger.WarnContext(ctx, "transaction attempt failed",
			"call_id", entry.CallID,
			"method", entry.Method,
			"attempt", entry.Attempt,
			"handle", entry.Handle,
			"error", err,
		)
	}
	span.SetAttributes(attribute.Int("acp.tx.status", entry.Status))

	metrics.EmitTxAttempt(p.obs.Metrics, metrics.TxAttemptMetric{
		Method:   entry.Method,
		Attempt:  entry.Attempt,
		Result:   result,
		Duration: elapsed,
		Err:      err,
	})

	if p.obs.Journal == nil {
		return
	}
	if jerr := p.obs.Journal.Record(ctx, entry); jerr != nil && !apperrors.IsConflict(jerr) {
		p.logger.WarnContext(ctx, "record transaction attempt",
			"call_id", entry.CallID,
			"attempt", entry.Attempt,
			"error", jerr,
		)
	}
}

func (p *Pipeline) notifyFailure(ctx context.Context, callID string, call core.Call, attempts int, err error) {
	if p.obs.Notifier == nil {
		return
	}
	payload := notify.TransactionFailurePayload{
		CallID:     callID,
		Method:     call.Method,
		Target:     call.Target,
		JobID:      jobIDArg(call),
		Attempts:   attempts,
		Error:      err.Error(),
		ErrorClass: string(apperrors.GetCode(err)),
	}
	// Notification must not be cut short by the caller's cancellation.
	p.obs.Notifier.NotifyTransactionFailure(context.WithoutCancel(ctx), payload)
}

// jobIDArg returns the job id argument of job-scoped calls, or 0.
func jobIDArg(call core.Call) int64 {
	switch call.Method {
	case MethodSetBudget, MethodCreateMemo, MethodCreatePayableMemo:
	default:
		return 0
	}
	if len(call.Args) == 0 {
		return 0
	}
	switch v := call.Args[0].(type) {
	case int64:
		return v
	case string:
		id, _ := strconv.ParseInt(v, 10, 64)
		return id
	default:
		return 0
	}
}
