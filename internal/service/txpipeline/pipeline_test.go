package txpipeline

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
	"github.com/quocan1101-cloud/acp-hackathon/internal/mocks"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/notify"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/statsd"
)

const escrow = "0xEscrow"

var calls = Calls{Escrow: escrow, PaymentToken: "0xToken"}

func noWait(max int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  max,
		Backoff:      func(int) time.Duration { return 0 },
		PollInterval: time.Millisecond,
		MaxPolls:     5,
	}
}

func confirmed(hash string) *core.CallStatus {
	return &core.CallStatus{Status: core.StatusConfirmed, Receipts: []core.Receipt{{TransactionHash: hash}}}
}

type notifierFunc func(ctx context.Context, p notify.TransactionFailurePayload)

func (f notifierFunc) NotifyTransactionFailure(ctx context.Context, p notify.TransactionFailurePayload) {
	f(ctx, p)
}

func TestNew_RequiresRelay(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrRelayRequired)
}

func TestExecute_SucceedsAfterTwoFailedConfirms(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)
	rec := &statsd.Recorder{}

	call := calls.SignMemo(7, true, "ok")
	gomock.InOrder(
		relay.EXPECT().Submit(gomock.Any(), call).Return(core.Handle("h1"), nil),
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(&core.CallStatus{Status: 500}, nil),
		relay.EXPECT().Submit(gomock.Any(), call).Return(core.Handle("h2"), nil),
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h2")).Return(nil, errors.New("gateway timeout")),
		relay.EXPECT().Submit(gomock.Any(), call).Return(core.Handle("h3"), nil),
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h3")).Return(confirmed("0xthird"), nil),
	)

	p, err := New(Options{Relay: relay, Policy: noWait(3), Observers: Observers{Metrics: rec}})
	require.NoError(t, err)

	res, err := p.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, core.Handle("h3"), res.Handle)
	assert.Equal(t, "0xthird", res.TxHash())

	attempts := rec.Named("tx.attempt")
	require.Len(t, attempts, 3)
	assert.Equal(t, "rejected", attempts[0].Tags["result"])
	assert.Equal(t, "error", attempts[1].Tags["result"])
	assert.Equal(t, "success", attempts[2].Tags["result"])
}

func TestExecute_PollsInFlightHandleWithoutResubmitting(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)

	call := calls.Approve(big.NewInt(10_000_000))
	relay.EXPECT().Submit(gomock.Any(), call).Return(core.Handle("h1"), nil).Times(1)
	gomock.InOrder(
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(&core.CallStatus{Status: 100}, nil),
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(&core.CallStatus{Status: 100}, nil),
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(confirmed("0xapproved"), nil),
	)

	p, err := New(Options{Relay: relay, Policy: noWait(3)})
	require.NoError(t, err)

	res, err := p.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, core.Handle("h1"), res.Handle)
	assert.Equal(t, "0xapproved", res.TxHash())
}

func TestExecute_InFlightPastPollBudgetIsNotResubmitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)

	call := calls.SignMemo(4, true, "")
	relay.EXPECT().Submit(gomock.Any(), call).Return(core.Handle("h1"), nil).Times(1)
	relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(&core.CallStatus{Status: 100}, nil).Times(2)

	policy := noWait(3)
	policy.MaxPolls = 2
	p, err := New(Options{Relay: relay, Policy: policy})
	require.NoError(t, err)

	_, err = p.Execute(context.Background(), call)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransactionFailed(err))
	var inFlight *InFlightError
	require.ErrorAs(t, err, &inFlight)
	assert.Equal(t, 2, inFlight.Polls)
}

func TestExecute_ExhaustsBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)
	journal := mocks.NewMockTransactionJournal(ctrl)

	call := calls.Approve(big.NewInt(10_000_000))
	relay.EXPECT().Submit(gomock.Any(), call).Return(core.Handle(""), errors.New("relay down")).Times(3)

	var recorded []*model.TxAttempt
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *model.TxAttempt) error {
			recorded = append(recorded, a)
			return nil
		}).Times(3)

	var notified []notify.TransactionFailurePayload
	p, err := New(Options{
		Relay:  relay,
		Policy: noWait(3),
		Observers: Observers{
			Journal: journal,
			Notifier: notifierFunc(func(_ context.Context, payload notify.TransactionFailurePayload) {
				notified = append(notified, payload)
			}),
		},
	})
	require.NoError(t, err)

	_, err = p.Execute(context.Background(), call)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransactionFailed(err))
	assert.Contains(t, err.Error(), "relay down")

	require.Len(t, recorded, 3)
	for i, a := range recorded {
		assert.Equal(t, i+1, a.Attempt)
		assert.Equal(t, model.TxResultError, a.Result)
		assert.Equal(t, recorded[0].CallID, a.CallID)
	}

	require.Len(t, notified, 1)
	assert.Equal(t, MethodApprove, notified[0].Method)
	assert.Equal(t, 3, notified[0].Attempts)
	assert.Equal(t, string(apperrors.ErrCodeTransactionFailed), notified[0].ErrorClass)
}

func TestExecute_JournalConflictIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)
	journal := mocks.NewMockTransactionJournal(ctrl)

	relay.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(core.Handle("h1"), nil)
	relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(confirmed("0x1"), nil)
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(apperrors.Conflict("already recorded"))

	p, err := New(Options{Relay: relay, Policy: noWait(1), Observers: Observers{Journal: journal}})
	require.NoError(t, err)

	res, err := p.Execute(context.Background(), calls.SignMemo(1, true, ""))
	require.NoError(t, err)
	assert.Equal(t, "0x1", res.TxHash())
}

func TestConfirm_IsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)

	gomock.InOrder(
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(&core.CallStatus{Status: 100}, nil),
		relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(confirmed("0xabc"), nil),
	)

	p, err := New(Options{Relay: relay})
	require.NoError(t, err)

	pending, err := p.Confirm(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, 100, pending.Status)

	first, err := p.Confirm(context.Background(), "h1")
	require.NoError(t, err)
	second, err := p.Confirm(context.Background(), "h1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestConfirm_CachedStatusExpires(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)
	relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(confirmed("0x1"), nil).Times(2)
	relay.EXPECT().Confirm(gomock.Any(), core.Handle("h2")).Return(confirmed("0x2"), nil).Times(1)

	p, err := New(Options{Relay: relay})
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	_, err = p.Confirm(ctx, "h1")
	require.NoError(t, err)
	_, err = p.Confirm(ctx, "h1")
	require.NoError(t, err)

	now = now.Add(2 * confirmedTTL)
	_, err = p.Confirm(ctx, "h2")
	require.NoError(t, err)
	p.mu.Lock()
	assert.Len(t, p.confirmed, 1)
	p.mu.Unlock()

	_, err = p.Confirm(ctx, "h1")
	require.NoError(t, err)
}

func TestSubmitChecked_CheckFailureIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)

	call := calls.CreateJob("0xSeller", "0xEval", 1735689600)
	relay.EXPECT().Submit(gomock.Any(), call).Return(core.Handle("h1"), nil).Times(1)
	relay.EXPECT().Confirm(gomock.Any(), core.Handle("h1")).Return(confirmed("0x1"), nil).Times(1)

	p, err := New(Options{Relay: relay, Policy: noWait(3)})
	require.NoError(t, err)

	_, err = p.SubmitChecked(context.Background(), call, func(s *core.CallStatus) error {
		_, err := ExtractJobID(s, escrow)
		return err
	}).Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobIDUnresolved)
	assert.True(t, apperrors.IsUnexpected(err))
}

func TestSubmit_DependentCallWaitsForPrerequisite(t *testing.T) {
	relay := &mocks.RecordingRelay{}
	p, err := New(Options{Relay: relay, Policy: noWait(1)})
	require.NoError(t, err)

	ctx := context.Background()
	approve := p.Submit(ctx, calls.Approve(big.NewInt(5)))
	_, err = approve.Wait(ctx)
	require.NoError(t, err)

	_, err = p.Execute(ctx, calls.SignMemo(3, true, "paid"))
	require.NoError(t, err)

	assert.Equal(t, []string{MethodApprove, MethodSignMemo}, relay.Methods())
}

func TestPending_WaitHonoursContext(t *testing.T) {
	var released atomic.Bool
	block := make(chan struct{})
	relay := &mocks.RecordingRelay{SubmitErr: func(core.Call) error {
		<-block
		released.Store(true)
		return nil
	}}
	p, err := New(Options{Relay: relay, Policy: noWait(1)})
	require.NoError(t, err)

	pending := p.Submit(context.Background(), calls.SignMemo(1, true, ""))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	res, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, released.Load())
	assert.Equal(t, "0xtx-h1", res.TxHash())
}

func TestExecute_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockChainRelay(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	relay.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, core.Call) (core.Handle, error) {
		cancel()
		return "", context.Canceled
	}).MinTimes(1)

	p, err := New(Options{Relay: relay, Policy: RetryPolicy{MaxAttempts: 3, Backoff: LinearBackoff(time.Hour)}})
	require.NoError(t, err)

	_, err = p.SubmitChecked(ctx, calls.SignMemo(1, true, ""), nil).Wait(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCanceled(err))
}
