package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/txpipeline"
)

const (
	// DefaultJobExpiry is how long a freshly initiated job stays open.
	DefaultJobExpiry = 24 * time.Hour
	// DefaultPositionExpiry bounds an open_position transfer.
	DefaultPositionExpiry = 3 * time.Minute
	// DefaultTransferExpiry bounds every other payable memo.
	DefaultTransferExpiry = 24 * time.Hour

	agentLookupTimeout = 15 * time.Second
)

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	Pipeline      *txpipeline.Pipeline    // Required: submit-and-confirm pipeline
	API           core.ACPAPI             // Required: REST collaborator
	Calls         txpipeline.Calls        // Required: escrow and payment token addresses
	AgentAddress  string                  // Required: this agent's wallet address
	TokenDecimals int                     // Optional: defaults to DefaultTokenDecimals
	AgentCache    *core.AgentCacheService // Optional: caches agent lookups
	Logger        *slog.Logger            // Optional: structured logger
	Clock         func() time.Time        // Optional: defaults to time.Now
}

// Client performs ACP operations on behalf of a single agent wallet. Every
// state-changing method runs its contract calls through the pipeline, each
// dependent call waiting for its prerequisite to confirm.
type Client struct {
	pipeline *txpipeline.Pipeline
	api      core.ACPAPI
	calls    txpipeline.Calls
	self     string
	decimals int
	agents   *core.AgentCacheService
	logger   *slog.Logger
	now      func() time.Time

	agentLookups singleflight.Group
}

// NewClient constructs a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("Pipeline is required")
	}
	if opts.API == nil {
		return nil, errors.New("API is required")
	}
	if opts.Calls.Escrow == "" || opts.Calls.PaymentToken == "" {
		return nil, errors.New("escrow and payment token addresses are required")
	}
	if opts.AgentAddress == "" {
		return nil, errors.New("AgentAddress is required")
	}
	decimals := opts.TokenDecimals
	if decimals <= 0 {
		decimals = DefaultTokenDecimals
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Client{
		pipeline: opts.Pipeline,
		api:      opts.API,
		calls:    opts.Calls,
		self:     opts.AgentAddress,
		decimals: decimals,
		agents:   opts.AgentCache,
		logger:   logger.With("component", "acp_client"),
		now:      now,
	}, nil
}

// MustNewClient constructs a Client and panics on error.
func MustNewClient(opts ClientOptions) *Client {
	c, err := NewClient(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create Client: %v", err))
	}
	return c
}

// AgentAddress returns the wallet this client acts for.
func (c *Client) AgentAddress() string { return c.self }

// Job binds a snapshot to this client so actions can be invoked on it.
func (c *Client) Job(snapshot *model.Job) *Job {
	return &Job{Job: snapshot, client: c}
}

// InitiateJobRequest describes a new job the agent buys as client.
type InitiateJobRequest struct {
	Provider string
	// Requirement is a plain string or any JSON-encodable value.
	Requirement any
	Amount      float64
	// Evaluator defaults to the agent itself.
	Evaluator string
	// ExpiredAt defaults to now + DefaultJobExpiry.
	ExpiredAt time.Time
}

// InitiateJob creates the job on chain, funds its budget, posts the opening
// negotiation memo and announces the job to the API. It returns the job id
// assigned by the escrow contract.
func (c *Client) InitiateJob(ctx context.Context, req InitiateJobRequest) (int64, error) {
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		return 0, apperrors.ValidationField("provider", "provider address is required")
	}
	if strings.EqualFold(provider, c.self) {
		return 0, apperrors.Precondition("cannot initiate a job with yourself as the provider")
	}
	content, err := requirementContent(req.Requirement)
	if err != nil {
		return 0, err
	}
	budget, err := ToBaseUnits(req.Amount, c.decimals)
	if err != nil {
		return 0, err
	}
	expiredAt := req.ExpiredAt
	if expiredAt.IsZero() {
		expiredAt = c.now().Add(DefaultJobExpiry)
	}
	evaluator := req.Evaluator
	if evaluator == "" {
		evaluator = c.self
	}

	var jobID int64
	create := c.pipeline.SubmitChecked(ctx,
		c.calls.CreateJob(provider, evaluator, expiredAt.Unix()),
		func(status *core.CallStatus) error {
			id, xerr := txpipeline.ExtractJobID(status, c.calls.Escrow)
			jobID = id
			return xerr
		},
	)
	if _, err := create.Wait(ctx); err != nil {
		return 0, err
	}

	if _, err := c.pipeline.Execute(ctx, c.calls.SetBudget(jobID, budget)); err != nil {
		return jobID, err
	}
	memo := c.calls.CreateMemo(jobID, content, model.MemoTypeMessage, true, model.PhaseNegotiation)
	if _, err := c.pipeline.Execute(ctx, memo); err != nil {
		return jobID, err
	}
	c.logger.InfoContext(ctx, "job initiated",
		"job_id", jobID,
		"provider", provider,
		"evaluator", evaluator,
	)

	note := core.InitiateNotification{
		JobID:            jobID,
		ClientAddress:    c.self,
		ProviderAddress:  provider,
		Description:      req.Requirement,
		ExpiredAt:        expiredAt.UTC().Format(time.RFC3339),
		EvaluatorAddress: evaluator,
	}
	if req.Amount > 0 {
		price := req.Amount
		note.Price = &price
	}
	if err := c.api.NotifyJobInitiated(ctx, note); err != nil {
		c.logger.WarnContext(ctx, "initiate notification failed", "job_id", jobID, "error", err)
	}
	return jobID, nil
}

func requirementContent(req any) (string, error) {
	switch v := req.(type) {
	case nil:
		return "", apperrors.ValidationField("requirement", "service requirement is required")
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeValidation, "encode service requirement")
		}
		return string(b), nil
	}
}

// RespondToJob signs the negotiation memo and, when accepting, opens the
// transaction phase with a message memo.
func (c *Client) RespondToJob(
	ctx context.Context,
	jobID, memoID int64,
	accept bool,
	content, reason string,
) (string, error) {
	res, err := c.pipeline.Execute(ctx, c.calls.SignMemo(memoID, accept, reason))
	if err != nil {
		return "", err
	}
	if !accept {
		return res.TxHash(), nil
	}
	if content == "" {
		content = fmt.Sprintf("Job %d accepted.", jobID)
		if reason != "" {
			content += " " + reason
		}
	}
	memo := c.calls.CreateMemo(jobID, content, model.MemoTypeMessage, false, model.PhaseTransaction)
	return c.execute(ctx, memo)
}

// PayJob approves the escrow allowance, signs the seller's memo and moves the
// job into evaluation.
func (c *Client) PayJob(ctx context.Context, jobID, memoID int64, amount float64, reason string) (string, error) {
	units, err := ToBaseUnits(amount, c.decimals)
	if err != nil {
		return "", err
	}
	if _, err := c.pipeline.Execute(ctx, c.calls.Approve(units)); err != nil {
		return "", err
	}
	if _, err := c.pipeline.Execute(ctx, c.calls.SignMemo(memoID, true, reason)); err != nil {
		return "", err
	}
	if reason == "" {
		reason = fmt.Sprintf("Job %d paid.", jobID)
	}
	memo := c.calls.CreateMemo(jobID, reason, model.MemoTypeMessage, false, model.PhaseEvaluation)
	return c.execute(ctx, memo)
}

// FundsMovement describes a payable memo.
type FundsMovement struct {
	JobID     int64
	Amount    float64
	Recipient string
	Fee       float64
	FeeType   model.FeeType
	Payload   *payload.Envelope
	NextPhase model.Phase
	ExpiredAt time.Time
}

func (c *Client) payableMemo(m FundsMovement, typ model.MemoType) (txpipeline.PayableMemo, *big.Int, error) {
	if m.Recipient == "" {
		return txpipeline.PayableMemo{}, nil, apperrors.ValidationField("recipient", "recipient address is required")
	}
	if m.Payload == nil {
		return txpipeline.PayableMemo{}, nil, apperrors.ValidationField("payload", "payload is required")
	}
	content, err := m.Payload.Content()
	if err != nil {
		return txpipeline.PayableMemo{}, nil, err
	}
	amount, err := ToBaseUnits(m.Amount, c.decimals)
	if err != nil {
		return txpipeline.PayableMemo{}, nil, err
	}
	fee, err := ToBaseUnits(m.Fee, c.decimals)
	if err != nil {
		return txpipeline.PayableMemo{}, nil, err
	}
	return txpipeline.PayableMemo{
		JobID:     m.JobID,
		Content:   content,
		Amount:    amount,
		Recipient: m.Recipient,
		Fee:       fee,
		FeeType:   m.FeeType,
		Type:      typ,
		NextPhase: m.NextPhase,
		ExpiredAt: m.ExpiredAt.Unix(),
	}, new(big.Int).Add(amount, fee), nil
}

// RequestFunds asks the counterparty to pay m.Amount to m.Recipient.
func (c *Client) RequestFunds(ctx context.Context, m FundsMovement) (string, error) {
	memo, _, err := c.payableMemo(m, model.MemoTypePayableRequest)
	if err != nil {
		return "", err
	}
	return c.execute(ctx, c.calls.CreatePayableMemo(memo))
}

// RespondToFundsRequest signs a payable request. Accepting a non-zero amount
// first approves the allowance the escrow will pull.
func (c *Client) RespondToFundsRequest(
	ctx context.Context,
	memoID int64,
	accept bool,
	amount float64,
	reason string,
) (string, error) {
	if accept && amount > 0 {
		units, err := ToBaseUnits(amount, c.decimals)
		if err != nil {
			return "", err
		}
		if _, err := c.pipeline.Execute(ctx, c.calls.Approve(units)); err != nil {
			return "", err
		}
	}
	return c.execute(ctx, c.calls.SignMemo(memoID, accept, reason))
}

// TransferFunds escrows amount plus fee for m.Recipient.
func (c *Client) TransferFunds(ctx context.Context, m FundsMovement) (string, error) {
	memo, total, err := c.payableMemo(m, model.MemoTypePayableTransferEscrow)
	if err != nil {
		return "", err
	}
	if total.Sign() > 0 {
		if _, err := c.pipeline.Execute(ctx, c.calls.Approve(total)); err != nil {
			return "", err
		}
	}
	hash, err := c.execute(ctx, c.calls.CreatePayableMemo(memo))
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "funds transferred",
		"job_id", m.JobID,
		"recipient", m.Recipient,
		"kind", m.Payload.Kind,
		"tx_hash", hash,
	)
	return hash, nil
}

// SendMessage attaches an envelope as a plain message memo.
func (c *Client) SendMessage(ctx context.Context, jobID int64, env *payload.Envelope, next model.Phase) (string, error) {
	if env == nil {
		return "", apperrors.ValidationField("payload", "payload is required")
	}
	content, err := env.Content()
	if err != nil {
		return "", err
	}
	return c.execute(ctx, c.calls.CreateMemo(jobID, content, model.MemoTypeMessage, false, next))
}

// RespondToFundsTransfer signs an escrowed transfer.
func (c *Client) RespondToFundsTransfer(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	return c.execute(ctx, c.calls.SignMemo(memoID, accept, reason))
}

// DeliverJob submits the deliverable and moves the job towards completion.
func (c *Client) DeliverJob(ctx context.Context, jobID int64, deliverable payload.Deliverable) (string, error) {
	if deliverable.Type == "" {
		return "", apperrors.ValidationField("type", "deliverable type is required")
	}
	b, err := json.Marshal(deliverable)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidation, "encode deliverable")
	}
	return c.execute(ctx, c.calls.CreateMemo(jobID, string(b), model.MemoTypeObjectURL, true, model.PhaseCompleted))
}

// SignMemo approves or rejects a memo.
func (c *Client) SignMemo(ctx context.Context, memoID int64, accept bool, reason string) (string, error) {
	hash, err := c.execute(ctx, c.calls.SignMemo(memoID, accept, reason))
	if err != nil {
		return "", err
	}
	c.logger.DebugContext(ctx, "memo signed", "memo_id", memoID, "accepted", accept, "tx_hash", hash)
	return hash, nil
}

func (c *Client) execute(ctx context.Context, call core.Call) (string, error) {
	res, err := c.pipeline.Execute(ctx, call)
	if err != nil {
		return "", err
	}
	return res.TxHash(), nil
}

// BrowseAgents searches the agent directory. TopK defaults to
// model.DefaultAgentTopK.
func (c *Client) BrowseAgents(ctx context.Context, search model.AgentSearch) ([]*model.Agent, error) {
	if err := search.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid agent search")
	}
	if search.TopK == 0 {
		search.TopK = model.DefaultAgentTopK
	}
	return c.api.SearchAgents(ctx, search)
}

// GetAgent looks up an agent by wallet. Concurrent lookups for the same
// wallet share one request; results are cached when a cache is configured.
func (c *Client) GetAgent(ctx context.Context, wallet string) (*model.Agent, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, apperrors.ValidationField("wallet", "wallet address is required")
	}
	if c.agents != nil {
		if cached, err := c.agents.Get(ctx, wallet); err != nil {
			c.logger.WarnContext(ctx, "agent cache read failed", "wallet", wallet, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	// The shared lookup must outlive any one caller's cancellation.
	ch := c.agentLookups.DoChan(strings.ToLower(wallet), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), agentLookupTimeout)
		defer cancel()
		agent, err := c.api.GetAgent(ctx, wallet)
		if err != nil {
			return nil, err
		}
		if agent == nil {
			return nil, apperrors.NotFoundf("agent %s not found", wallet)
		}
		if c.agents != nil {
			if perr := c.agents.Put(ctx, agent); perr != nil {
				c.logger.WarnContext(ctx, "agent cache write failed", "wallet", wallet, "error", perr)
			}
		}
		return agent, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		agent, _ := res.Val.(*model.Agent)
		return agent, nil
	}
}

// ActiveJobs lists jobs the agent is still working on.
func (c *Client) ActiveJobs(ctx context.Context, page model.Pagination) ([]*Job, error) {
	return c.listJobs(ctx, model.JobListActive, page)
}

// CompletedJobs lists finished jobs.
func (c *Client) CompletedJobs(ctx context.Context, page model.Pagination) ([]*Job, error) {
	return c.listJobs(ctx, model.JobListCompleted, page)
}

// CancelledJobs lists rejected and expired jobs.
func (c *Client) CancelledJobs(ctx context.Context, page model.Pagination) ([]*Job, error) {
	return c.listJobs(ctx, model.JobListCancelled, page)
}

func (c *Client) listJobs(ctx context.Context, kind model.JobListKind, page model.Pagination) ([]*Job, error) {
	snapshots, err := c.api.ListJobs(ctx, kind, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", kind, err)
	}
	jobs := make([]*Job, 0, len(snapshots))
	for _, s := range snapshots {
		if s != nil {
			jobs = append(jobs, c.Job(s))
		}
	}
	return jobs, nil
}

// GetJob fetches a fresh snapshot of job id.
func (c *Client) GetJob(ctx context.Context, id int64) (*Job, error) {
	snapshot, err := c.api.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperrors.NotFoundf("job %d not found", id)
	}
	return c.Job(snapshot), nil
}

// GetMemo fetches a single memo of a job.
func (c *Client) GetMemo(ctx context.Context, jobID, memoID int64) (*model.Memo, error) {
	memo, err := c.api.GetMemo(ctx, jobID, memoID)
	if err != nil {
		return nil, err
	}
	if memo == nil {
		return nil, apperrors.NotFoundf("memo %d of job %d not found", memoID, jobID)
	}
	return memo, nil
}
