package realtime

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/dispatch"
)

// PollerOptions configures a Poller.
type PollerOptions struct {
	API           core.ACPAPI
	Ingress       *Ingress
	WalletAddress string
	Interval      time.Duration // Default 10s
	PageSize      int           // Default 50
	Logger        *slog.Logger
}

// Poller lists active jobs on an interval and emits an event for every job
// whose latest memo changed since the previous poll.
type Poller struct {
	api      core.ACPAPI
	ingress  *Ingress
	wallet   string
	interval time.Duration
	pageSize int
	logger   *slog.Logger

	seen map[int64]int64
}

// NewPoller validates opts.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.API == nil || opts.Ingress == nil {
		return nil, errors.New("realtime: poller needs an api and an ingress")
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		api:      opts.API,
		ingress:  opts.Ingress,
		wallet:   opts.WalletAddress,
		interval: opts.Interval,
		pageSize: opts.PageSize,
		logger:   logger.With("component", "poller"),
		seen:     make(map[int64]int64),
	}, nil
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.WarnContext(ctx, "poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one pass over every page of active jobs and returns the number of
// events emitted.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	emitted := 0
	active := make(map[int64]struct{})
	for page := 1; ; page++ {
		jobs, err := p.api.ListJobs(ctx, model.JobListActive, model.Pagination{Page: page, PageSize: p.pageSize})
		if err != nil {
			return emitted, err
		}
		for _, job := range jobs {
			if job == nil {
				continue
			}
			active[job.ID] = struct{}{}
			if p.changed(job) && p.ingress.Deliver(ctx, p.kindFor(job), job) {
				emitted++
			}
		}
		if len(jobs) < p.pageSize {
			break
		}
	}
	for id := range p.seen {
		if _, ok := active[id]; !ok {
			delete(p.seen, id)
		}
	}
	return emitted, nil
}

func (p *Poller) changed(job *model.Job) bool {
	latest := job.LatestMemo()
	if latest == nil {
		return false
	}
	prev, ok := p.seen[job.ID]
	p.seen[job.ID] = latest.ID
	return !ok || prev != latest.ID
}

func (p *Poller) kindFor(job *model.Job) dispatch.Kind {
	if job.Phase == model.PhaseEvaluation && p.wallet != "" && strings.EqualFold(job.EvaluatorAddress, p.wallet) {
		if latest := job.LatestMemo(); latest != nil && latest.NextPhase == model.PhaseCompleted {
			return dispatch.KindEvaluate
		}
	}
	return dispatch.KindNewTask
}
