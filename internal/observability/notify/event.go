// Package notify defines the payload and sink contract for terminal
// transaction failure notifications.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// TransactionFailurePayload describes a contract call that exhausted its
// retry budget or failed terminally.
type TransactionFailurePayload struct {
	CallID     string
	Method     string
	Target     string
	JobID      int64
	Attempts   int
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming failure notifications.
type Sink interface {
	SendTransactionFailure(ctx context.Context, payload TransactionFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload TransactionFailurePayload) error

// SendTransactionFailure implements the Sink interface.
func (f SinkFunc) SendTransactionFailure(ctx context.Context, payload TransactionFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
