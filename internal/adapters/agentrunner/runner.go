// Package agentrunner implements the buyer, seller and evaluator roles as a
// dispatch.Handler. Each role reacts to the job snapshot carried by the event
// and drives the job one step forward through service.Job.
package agentrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/statsd"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/dispatch"
)

// Role is one agent behaviour.
type Role string

const (
	RoleBuyer     Role = "buyer"
	RoleSeller    Role = "seller"
	RoleEvaluator Role = "evaluator"
)

// ParseRoles parses a comma separated role list.
func ParseRoles(s string) ([]Role, error) {
	var roles []Role
	for _, part := range strings.Split(s, ",") {
		r := Role(strings.ToLower(strings.TrimSpace(part)))
		if r == "" {
			continue
		}
		switch r {
		case RoleBuyer, RoleSeller, RoleEvaluator:
		default:
			return nil, fmt.Errorf("unknown agent role %q", part)
		}
		if !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// RunnerOptions configures the agent runner.
type RunnerOptions struct {
	Client *service.Client // Required
	Roles  []Role          // Required, at least one

	// Buyer
	MaxPrice float64 // Jobs priced above this are skipped (0 = no limit)

	// Seller
	OfferingAllowlist []string // Service names the seller accepts (empty = all)
	Deliverable       payload.Deliverable

	// Evaluator
	Policy *service.EvaluationPolicy

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner routes dispatch events to the configured roles.
type Runner struct {
	client      *service.Client
	roles       map[Role]bool
	maxPrice    float64
	allowlist   []string
	deliverable payload.Deliverable
	policy      *service.EvaluationPolicy
	logger      *slog.Logger
	metrics     statsd.Sink
}

var _ dispatch.Handler = (*Runner)(nil)

// NewRunner validates opts.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Client == nil {
		return nil, errors.New("agentrunner: client is required")
	}
	if len(opts.Roles) == 0 {
		return nil, errors.New("agentrunner: at least one role is required")
	}
	roles := make(map[Role]bool, len(opts.Roles))
	for _, r := range opts.Roles {
		roles[r] = true
	}
	if roles[RoleSeller] && opts.Deliverable.Type == "" {
		return nil, errors.New("agentrunner: seller role needs a deliverable")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	allow := make([]string, 0, len(opts.OfferingAllowlist))
	for _, name := range opts.OfferingAllowlist {
		if name = strings.TrimSpace(name); name != "" {
			allow = append(allow, strings.ToLower(name))
		}
	}
	return &Runner{
		client:      opts.Client,
		roles:       roles,
		maxPrice:    opts.MaxPrice,
		allowlist:   allow,
		deliverable: opts.Deliverable,
		policy:      opts.Policy,
		logger:      logger.With("component", "agentrunner"),
		metrics:     opts.Metrics,
	}, nil
}

// Handle implements dispatch.Handler.
func (r *Runner) Handle(ctx context.Context, ev dispatch.Event) error {
	snapshot, err := r.snapshot(ctx, ev)
	if err != nil {
		return err
	}
	job := r.client.Job(snapshot)
	self := r.client.AgentAddress()
	log := r.logger.With("job_id", snapshot.ID, "kind", string(ev.Kind), "phase", snapshot.Phase.String())

	switch {
	case ev.Kind == dispatch.KindEvaluate:
		if !r.roles[RoleEvaluator] {
			return nil
		}
		return r.evaluate(ctx, log, job)
	case r.roles[RoleSeller] && strings.EqualFold(snapshot.ProviderAddress, self):
		return r.sell(ctx, log, job)
	case r.roles[RoleBuyer] && strings.EqualFold(snapshot.ClientAddress, self):
		return r.buy(ctx, log, job)
	case r.roles[RoleEvaluator] && strings.EqualFold(snapshot.EvaluatorAddress, self):
		return r.evaluate(ctx, log, job)
	}
	log.DebugContext(ctx, "no role applies to job")
	return nil
}

// snapshot returns the event's job, refetched when the event was requeued so
// the handler sees the counterparty's latest move.
func (r *Runner) snapshot(ctx context.Context, ev dispatch.Event) (*model.Job, error) {
	if ev.Job == nil {
		return nil, errors.New("agentrunner: event has no job")
	}
	if ev.Requeues == 0 {
		return ev.Job, nil
	}
	fresh, err := r.client.GetJob(ctx, ev.Job.ID)
	if err != nil {
		return nil, err
	}
	return fresh.Snapshot(), nil
}

func (r *Runner) buy(ctx context.Context, log *slog.Logger, job *service.Job) error {
	latest := job.LatestMemo()
	if latest == nil {
		return dispatch.ErrNotReady
	}
	switch {
	case latest.NextPhase == model.PhaseTransaction:
		if r.maxPrice > 0 && job.Price > r.maxPrice {
			log.InfoContext(ctx, "job over budget, skipping", "price", job.Price, "max_price", r.maxPrice)
			r.count("buyer", "over_budget")
			return nil
		}
		tx, err := job.Pay(ctx, job.Price, "")
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "job paid", "amount", job.Price, "tx_hash", tx)
		r.count("buyer", "paid")
		return nil
	case latest.NextPhase == model.PhaseNegotiation && job.Phase <= model.PhaseNegotiation:
		return dispatch.ErrNotReady
	}
	return nil
}

func (r *Runner) sell(ctx context.Context, log *slog.Logger, job *service.Job) error {
	latest := job.LatestMemo()
	if latest == nil {
		return nil
	}
	switch {
	case job.Phase == model.PhaseRequest && latest.NextPhase == model.PhaseNegotiation:
		accept := r.offers(job.ServiceName())
		reason := ""
		if !accept {
			reason = fmt.Sprintf("Job %d rejected: service %q is not offered", job.ID, job.ServiceName())
		}
		tx, err := job.Respond(ctx, accept, nil, reason)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "responded to job", "accept", accept, "service", job.ServiceName(), "tx_hash", tx)
		r.count("seller", verdict(accept))
		return nil
	case job.Phase == model.PhaseTransaction && latest.NextPhase == model.PhaseEvaluation:
		tx, err := job.Deliver(ctx, r.deliverable)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "job delivered", "tx_hash", tx)
		r.count("seller", "delivered")
		return nil
	}
	return nil
}

func (r *Runner) offers(name string) bool {
	if len(r.allowlist) == 0 {
		return true
	}
	return slices.Contains(r.allowlist, strings.ToLower(strings.TrimSpace(name)))
}

func (r *Runner) evaluate(ctx context.Context, log *slog.Logger, job *service.Job) error {
	accept, reason, err := r.policy.Decide(job.Snapshot())
	if err != nil {
		return err
	}
	tx, err := job.Evaluate(ctx, accept, reason)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "job evaluated", "accept", accept, "reason", reason, "tx_hash", tx)
	r.count("evaluator", verdict(accept))
	return nil
}

func (r *Runner) count(role, outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.Count("agent.action", 1, map[string]string{"role": role, "outcome": outcome})
}

func verdict(accept bool) string {
	if accept {
		return "accepted"
	}
	return "rejected"
}
