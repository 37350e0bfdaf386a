// Package metrics emits the engine's standard StatsD metrics.
package metrics

import (
	"time"

	obserrors "github.com/quocan1101-cloud/acp-hackathon/internal/observability/errors"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultRejected = "rejected"
	ResultRequeued = "requeued"
	ResultPanic    = "panic"
)

// TxAttemptMetric describes one submit/confirm attempt.
type TxAttemptMetric struct {
	Method   string
	Attempt  int
	Result   string
	Duration time.Duration
	Err      error
}

// EmitTxAttempt emits tx.attempt and tx.duration.
func EmitTxAttempt(sink statsd.Sink, in TxAttemptMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"method": in.Method,
		"result": in.Result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("tx.attempt", 1, tags)
	if in.Duration > 0 {
		sink.Timing("tx.duration", in.Duration, CloneTags(tags))
	}
}

// DispatchMetric describes one handled dispatch event.
type DispatchMetric struct {
	Kind     string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitDispatchEvent emits dispatch.event and dispatch.duration.
func EmitDispatchEvent(sink statsd.Sink, in DispatchMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"kind":   in.Kind,
		"result": in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("dispatch.event", 1, tags)
	if in.Duration > 0 {
		sink.Timing("dispatch.duration", in.Duration, CloneTags(tags))
	}
}

// EmitQueueDepth reports the number of events waiting for intake.
func EmitQueueDepth(sink statsd.Sink, depth int) {
	if sink == nil {
		return
	}
	sink.Gauge("dispatch.queue_depth", float64(depth), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
