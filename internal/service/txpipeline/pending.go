package txpipeline

import (
	"context"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
)

// Pending is a submitted call whose result is not known yet. Dependent
// calls Wait on their prerequisite before submitting.
type Pending struct {
	CallID string
	Call   core.Call

	done chan struct{}
	res  *Result
	err  error
}

func newPending(callID string, call core.Call) *Pending {
	return &Pending{CallID: callID, Call: call, done: make(chan struct{})}
}

func (p *Pending) resolve(res *Result, err error) {
	p.res, p.err = res, err
	close(p.done)
}

// Done is closed once the call is confirmed or has failed terminally.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the call finishes or ctx is done. Abandoning the wait
// does not stop the attempt loop.
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
