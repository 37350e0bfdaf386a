package service

import (
	"context"
	"fmt"
	"time"

	domainjob "github.com/quocan1101-cloud/acp-hackathon/internal/domain/job"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// DefaultCloseJobMessage is sent by CloseJob when no message is given.
const DefaultCloseJobMessage = "Close job and withdraw all"

// OpenPositionRequest funds one or more positions the seller should open.
type OpenPositionRequest struct {
	Positions []payload.OpenPosition
	Fee       float64
	// ExpiredAt defaults to now + DefaultPositionExpiry.
	ExpiredAt time.Time
	// Wallet receives the funds; defaults to the provider.
	Wallet string
}

// OpenPosition escrows the sum of all position amounts for the seller.
func (j *Job) OpenPosition(ctx context.Context, req OpenPositionRequest) (string, error) {
	if len(req.Positions) == 0 {
		return "", apperrors.Precondition("no positions to open")
	}
	var total float64
	for _, p := range req.Positions {
		total += p.Amount
	}
	env, err := payload.New(payload.KindOpenPosition, req.Positions)
	if err != nil {
		return "", err
	}
	recipient := req.Wallet
	if recipient == "" {
		recipient = j.ProviderAddress
	}
	return j.client.TransferFunds(ctx, FundsMovement{
		JobID:     j.ID,
		Amount:    total,
		Recipient: recipient,
		Fee:       req.Fee,
		FeeType:   model.FeeTypeImmediate,
		Payload:   env,
		NextPhase: model.PhaseTransaction,
		ExpiredAt: j.expiry(req.ExpiredAt, DefaultPositionExpiry),
	})
}

// RespondOpenPosition accepts or rejects an open_position transfer.
func (j *Job) RespondOpenPosition(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	memo, env, err := domainjob.RequireMemoWithPayload(j.Job, memoID,
		model.PhaseTransaction, model.MemoTypePayableTransferEscrow, payload.KindOpenPosition)
	if err != nil {
		return "", err
	}
	if payload.FirstAs[payload.OpenPosition](env) == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d position opening %s", j.ID, verdict(accept))
	}
	return j.client.RespondToFundsTransfer(ctx, memo.ID, accept, reason)
}

// ClosePartialPosition asks the buyer-side escrow to return part of a
// position to the client.
func (j *Job) ClosePartialPosition(ctx context.Context, p payload.ClosePosition, expiredAt time.Time) (string, error) {
	env, err := payload.New(payload.KindClosePartialPosition, p)
	if err != nil {
		return "", err
	}
	return j.client.RequestFunds(ctx, FundsMovement{
		JobID:     j.ID,
		Amount:    p.Amount,
		Recipient: j.ClientAddress,
		FeeType:   model.FeeTypeNone,
		Payload:   env,
		NextPhase: model.PhaseTransaction,
		ExpiredAt: j.expiry(expiredAt, DefaultTransferExpiry),
	})
}

// RespondClosePartialPosition answers a close_partial_position request,
// paying the requested amount when accepted.
func (j *Job) RespondClosePartialPosition(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	memo, env, err := domainjob.RequireMemoWithPayload(j.Job, memoID,
		model.PhaseTransaction, model.MemoTypePayableRequest, payload.KindClosePartialPosition)
	if err != nil {
		return "", err
	}
	closing := payload.FirstAs[payload.ClosePosition](env)
	if closing == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d position closing %s", j.ID, verdict(accept))
	}
	return j.client.RespondToFundsRequest(ctx, memo.ID, accept, closing.Amount, reason)
}

// RequestClosePosition asks the seller to close a position.
func (j *Job) RequestClosePosition(ctx context.Context, p payload.RequestClosePosition) (string, error) {
	env, err := payload.New(payload.KindClosePosition, p)
	if err != nil {
		return "", err
	}
	return j.client.SendMessage(ctx, j.ID, env, model.PhaseTransaction)
}

// ClosePositionResponse is the seller's answer to a close request.
type ClosePositionResponse struct {
	MemoID int64
	Accept bool
	// Position is returned to the client when accepted.
	Position  payload.ClosePosition
	Reason    string
	ExpiredAt time.Time
}

// ResponseRequestClosePosition signs the buyer's close request and, when
// accepted, returns the position amount to the client.
func (j *Job) ResponseRequestClosePosition(ctx context.Context, resp ClosePositionResponse) (string, error) {
	memo, env, err := domainjob.RequireMemoWithPayload(j.Job, resp.MemoID,
		model.PhaseTransaction, model.MemoTypeMessage, payload.KindClosePosition)
	if err != nil {
		return "", err
	}
	if payload.FirstAs[payload.RequestClosePosition](env) == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	reason := resp.Reason
	if reason == "" {
		reason = fmt.Sprintf("Job %d close position request %s", j.ID, verdict(resp.Accept))
	}
	hash, err := j.client.SignMemo(ctx, memo.ID, resp.Accept, reason)
	if err != nil || !resp.Accept {
		return hash, err
	}

	transfer, err := payload.New(payload.KindClosePosition, resp.Position)
	if err != nil {
		return "", err
	}
	return j.client.TransferFunds(ctx, FundsMovement{
		JobID:     j.ID,
		Amount:    resp.Position.Amount,
		Recipient: j.ClientAddress,
		FeeType:   model.FeeTypeNone,
		Payload:   transfer,
		NextPhase: model.PhaseTransaction,
		ExpiredAt: j.expiry(resp.ExpiredAt, DefaultTransferExpiry),
	})
}

// ConfirmClosePosition signs the seller's close_position transfer.
func (j *Job) ConfirmClosePosition(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	memo, env, err := domainjob.RequireMemoWithPayload(j.Job, memoID,
		model.PhaseTransaction, model.MemoTypePayableTransferEscrow, payload.KindClosePosition)
	if err != nil {
		return "", err
	}
	if payload.FirstAs[payload.ClosePosition](env) == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d close position confirmation %s", j.ID, verdict(accept))
	}
	return j.client.SignMemo(ctx, memo.ID, accept, reason)
}

// PositionFulfilled returns a closed position's proceeds to the client.
func (j *Job) PositionFulfilled(ctx context.Context, p payload.PositionFulfilled, expiredAt time.Time) (string, error) {
	return j.returnToClient(ctx, payload.KindPositionFulfilled, p, p.Amount, expiredAt)
}

// UnfulfilledPosition returns the funds of a position that was not opened.
func (j *Job) UnfulfilledPosition(ctx context.Context, p payload.UnfulfilledPosition, expiredAt time.Time) (string, error) {
	return j.returnToClient(ctx, payload.KindUnfulfilledPosition, p, p.Amount, expiredAt)
}

func (j *Job) returnToClient(
	ctx context.Context,
	kind payload.Kind,
	record any,
	amount float64,
	expiredAt time.Time,
) (string, error) {
	env, err := payload.New(kind, record)
	if err != nil {
		return "", err
	}
	return j.client.TransferFunds(ctx, FundsMovement{
		JobID:     j.ID,
		Amount:    amount,
		Recipient: j.ClientAddress,
		FeeType:   model.FeeTypeNone,
		Payload:   env,
		NextPhase: model.PhaseTransaction,
		ExpiredAt: j.expiry(expiredAt, DefaultTransferExpiry),
	})
}

// RespondPositionFulfilled signs a position_fulfilled transfer.
func (j *Job) RespondPositionFulfilled(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	memo, env, err := domainjob.RequireMemoWithPayload(j.Job, memoID,
		model.PhaseTransaction, model.MemoTypePayableTransferEscrow, payload.KindPositionFulfilled)
	if err != nil {
		return "", err
	}
	if payload.FirstAs[payload.PositionFulfilled](env) == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d position fulfilled %s", j.ID, verdict(accept))
	}
	return j.client.RespondToFundsTransfer(ctx, memo.ID, accept, reason)
}

// RespondUnfulfilledPosition signs an unfulfilled_position transfer.
func (j *Job) RespondUnfulfilledPosition(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	memo, env, err := domainjob.RequireMemoWithPayload(j.Job, memoID,
		model.PhaseTransaction, model.MemoTypePayableTransferEscrow, payload.KindUnfulfilledPosition)
	if err != nil {
		return "", err
	}
	if payload.FirstAs[payload.UnfulfilledPosition](env) == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d unfulfilled position %s", j.ID, verdict(accept))
	}
	return j.client.RespondToFundsTransfer(ctx, memo.ID, accept, reason)
}

// CloseJob asks the seller to close every position and settle the job.
func (j *Job) CloseJob(ctx context.Context, message string) (string, error) {
	if message == "" {
		message = DefaultCloseJobMessage
	}
	env, err := payload.New(payload.KindCloseJobAndWithdraw, payload.CloseJobAndWithdraw{Message: message})
	if err != nil {
		return "", err
	}
	return j.client.SendMessage(ctx, j.ID, env, model.PhaseTransaction)
}

// CloseJobResponse is the seller's answer to a close-job request.
type CloseJobResponse struct {
	MemoID    int64
	Accept    bool
	Fulfilled []payload.PositionFulfilled
	Reason    string
	ExpiredAt time.Time
}

// RespondCloseJob signs the close-job request and, when accepted, escrows
// the proceeds of every fulfilled position and completes the job.
func (j *Job) RespondCloseJob(ctx context.Context, resp CloseJobResponse) (string, error) {
	memo, env, err := domainjob.RequireMemoWithPayload(j.Job, resp.MemoID,
		model.PhaseTransaction, model.MemoTypeMessage, payload.KindCloseJobAndWithdraw)
	if err != nil {
		return "", err
	}
	if payload.FirstAs[payload.CloseJobAndWithdraw](env) == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	reason := resp.Reason
	if reason == "" {
		reason = fmt.Sprintf("Job %d job closing %s", j.ID, verdict(resp.Accept))
	}
	hash, err := j.client.SignMemo(ctx, memo.ID, resp.Accept, reason)
	if err != nil || !resp.Accept {
		return hash, err
	}

	fulfilled := resp.Fulfilled
	if fulfilled == nil {
		fulfilled = []payload.PositionFulfilled{}
	}
	var total float64
	for _, p := range fulfilled {
		total += p.Amount
	}
	settlement, err := payload.New(payload.KindPositionFulfilled, fulfilled)
	if err != nil {
		return "", err
	}
	return j.client.TransferFunds(ctx, FundsMovement{
		JobID:     j.ID,
		Amount:    total,
		Recipient: j.ProviderAddress,
		FeeType:   model.FeeTypeNone,
		Payload:   settlement,
		NextPhase: model.PhaseCompleted,
		ExpiredAt: j.expiry(resp.ExpiredAt, DefaultTransferExpiry),
	})
}

// ConfirmJobClosure signs the seller's closing memo.
func (j *Job) ConfirmJobClosure(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	memo, err := domainjob.RequireAnyMemo(j.Job, memoID)
	if err != nil {
		return "", err
	}
	env, err := domainjob.RequirePayloadKind(memo, payload.KindCloseJobAndWithdraw)
	if err != nil {
		return "", err
	}
	if payload.FirstAs[payload.CloseJobAndWithdraw](env) == nil {
		return "", invalidPayload(memo, env.Kind)
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d closing confirmation %s", j.ID, verdict(accept))
	}
	return j.client.SignMemo(ctx, memo.ID, accept, reason)
}

func (j *Job) expiry(at time.Time, fallback time.Duration) time.Time {
	if !at.IsZero() {
		return at
	}
	return j.client.now().Add(fallback)
}

func invalidPayload(memo *model.Memo, kind payload.Kind) error {
	return apperrors.Preconditionf("memo %d: invalid %s payload", memo.ID, kind)
}
