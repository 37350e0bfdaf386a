package service

import (
	"context"
	"fmt"

	domainjob "github.com/quocan1101-cloud/acp-hackathon/internal/domain/job"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// Job is a job snapshot bound to the client that acts on it. Every action
// checks its phase guard against the snapshot before any call reaches the
// chain; a failed guard returns a precondition error and submits nothing.
// The snapshot is never updated in place: fetch a fresh one with
// Client.GetJob to observe the effect of an action.
type Job struct {
	*model.Job

	client *Client
}

// Snapshot returns the underlying job data.
func (j *Job) Snapshot() *model.Job { return j.Job }

// Respond accepts or rejects the buyer's request. env, when set, becomes the
// content of the acceptance memo.
func (j *Job) Respond(ctx context.Context, accept bool, env *payload.Envelope, reason string) (string, error) {
	memo, err := domainjob.RequireLatest(j.Job, model.PhaseNegotiation)
	if err != nil {
		return "", err
	}
	var content string
	if env != nil {
		if content, err = env.Content(); err != nil {
			return "", err
		}
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d %s", j.ID, verdict(accept))
	}
	return j.client.RespondToJob(ctx, j.ID, memo.ID, accept, content, reason)
}

// Pay funds the job once the seller has accepted it.
func (j *Job) Pay(ctx context.Context, amount float64, reason string) (string, error) {
	memo, err := domainjob.RequireLatestIn(j.Job, model.PhaseTransaction, model.PhaseEvaluation)
	if err != nil {
		return "", err
	}
	if amount <= 0 {
		return "", apperrors.ValidationField("amount", "amount must be positive")
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d paid.", j.ID)
	}
	return j.client.PayJob(ctx, j.ID, memo.ID, amount, reason)
}

// Deliver submits the seller's work product.
func (j *Job) Deliver(ctx context.Context, deliverable payload.Deliverable) (string, error) {
	if _, err := domainjob.RequireLatest(j.Job, model.PhaseEvaluation); err != nil {
		return "", err
	}
	return j.client.DeliverJob(ctx, j.ID, deliverable)
}

// Evaluate accepts or rejects the delivered work.
func (j *Job) Evaluate(ctx context.Context, accept bool, reason string) (string, error) {
	memo, err := domainjob.RequireLatest(j.Job, model.PhaseCompleted)
	if err != nil {
		return "", err
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d delivery %s", j.ID, verdict(accept))
	}
	return j.client.SignMemo(ctx, memo.ID, accept, reason)
}

func verdict(accept bool) string {
	if accept {
		return "accepted"
	}
	return "rejected"
}
