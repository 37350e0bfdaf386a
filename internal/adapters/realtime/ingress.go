// Package realtime turns inbound job notifications into dispatch events.
// Two sources feed the same Ingress: a websocket subscription and a REST
// poller for deployments without socket access.
package realtime

import (
	"context"
	"log/slog"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/dispatch"
)

// Ingress resolves the memo to sign and forwards each event to the sink,
// dropping redeliveries when a deduper is configured.
type Ingress struct {
	sink   dispatch.Sink
	dedupe *core.EventDeduper
	logger *slog.Logger
}

// NewIngress builds an Ingress. dedupe may be nil.
func NewIngress(sink dispatch.Sink, dedupe *core.EventDeduper, logger *slog.Logger) *Ingress {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingress{sink: sink, dedupe: dedupe, logger: logger.With("component", "ingress")}
}

// Deliver pushes one event for job. It reports whether the event was pushed.
func (in *Ingress) Deliver(ctx context.Context, kind dispatch.Kind, job *model.Job) bool {
	if job == nil {
		return false
	}
	memo := job.PendingMemo()
	if in.dedupe != nil {
		key := int64(0)
		switch {
		case memo != nil:
			key = memo.ID
		case job.LatestMemo() != nil:
			key = job.LatestMemo().ID
		}
		first, err := in.dedupe.FirstSeen(ctx, job.ID, key, string(kind))
		if err != nil {
			// Fail open.
			in.logger.WarnContext(ctx, "event dedupe failed", "job_id", job.ID, "error", err)
		} else if !first {
			in.logger.DebugContext(ctx, "duplicate event dropped", "job_id", job.ID, "memo_id", key, "kind", string(kind))
			return false
		}
	}
	in.sink.Push(dispatch.NewEvent(kind, job, memo))
	return true
}
