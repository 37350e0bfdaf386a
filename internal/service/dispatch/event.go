// Package dispatch serializes intake of protocol events while handling each
// event on its own goroutine. A single FIFO queue guarded by one mutex feeds
// an intake loop; the loop drains the queue, hands every event to the worker
// pool and goes back to waiting on the wake signal.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
)

// ErrNotReady is returned by handlers when the event cannot be acted on yet,
// typically because the counterparty has not moved. The event is re-enqueued.
var ErrNotReady = errors.New("dispatch: event not ready")

// Kind is the type of inbound protocol event.
type Kind string

const (
	KindNewTask  Kind = "new_task"
	KindEvaluate Kind = "evaluate"
)

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool { return k == KindNewTask || k == KindEvaluate }

// Event is one queued (job, memo-to-sign) pair. It is consumed exactly once,
// unless the handler asks for it to be requeued.
type Event struct {
	ID         string
	Kind       Kind
	Job        *model.Job
	MemoToSign *model.Memo
	EnqueuedAt time.Time
	Requeues   int
}

// NewEvent builds an event for job. memo may be nil.
func NewEvent(kind Kind, job *model.Job, memo *model.Memo) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Job:        job,
		MemoToSign: memo,
		EnqueuedAt: time.Now().UTC(),
	}
}

// JobID returns the id of the event's job, or 0.
func (e Event) JobID() int64 {
	if e.Job == nil {
		return 0
	}
	return e.Job.ID
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Sink accepts events from ingress sources.
type Sink interface {
	Push(ev Event)
}
