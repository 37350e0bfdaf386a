package mocks

// RecordingRelay is a hand-written core.ChainRelay that confirms every call
// and keeps the submitted calls in order. Tests use it when they care about
// the sequence of contract calls rather than exact relay interactions.

import (
	"context"
	"fmt"
	"sync"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
)

var _ core.ChainRelay = (*RecordingRelay)(nil)

// RecordingRelay confirms calls with status 200 and a synthetic tx hash.
type RecordingRelay struct {
	// Logs are attached to the receipt of every call with the given method.
	Logs map[string][]core.Log
	// SubmitErr, when set, decides per call whether Submit fails.
	SubmitErr func(call core.Call) error

	mu       sync.Mutex
	calls    []core.Call
	handles  map[core.Handle]core.Call
	confirms int
}

// Submit records call and returns a fresh handle.
func (r *RecordingRelay) Submit(_ context.Context, call core.Call) (core.Handle, error) {
	if r.SubmitErr != nil {
		if err := r.SubmitErr(call); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if r.handles == nil {
		r.handles = make(map[core.Handle]core.Call)
	}
	h := core.Handle(fmt.Sprintf("h%d", len(r.calls)))
	r.handles[h] = call
	return h, nil
}

// Confirm returns a confirmed status for a known handle.
func (r *RecordingRelay) Confirm(_ context.Context, handle core.Handle) (*core.CallStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms++
	call, ok := r.handles[handle]
	if !ok {
		return nil, fmt.Errorf("unknown handle %s", handle)
	}
	return &core.CallStatus{
		Status: core.StatusConfirmed,
		Receipts: []core.Receipt{{
			TransactionHash: "0xtx-" + string(handle),
			Logs:            r.Logs[call.Method],
		}},
	}, nil
}

// Calls returns the submitted calls in order.
func (r *RecordingRelay) Calls() []core.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Call(nil), r.calls...)
}

// Methods returns the submitted method names in order.
func (r *RecordingRelay) Methods() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// Confirms returns how many times Confirm was called.
func (r *RecordingRelay) Confirms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirms
}
