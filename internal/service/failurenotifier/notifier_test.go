package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/notify"
)

func TestServiceNotifyTransactionFailure(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var received []notify.TransactionFailurePayload
	capture := notify.SinkFunc(func(ctx context.Context, payload notify.TransactionFailurePayload) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
		return nil
	})
	svc := NewService(Options{
		Sinks: []SinkRegistration{{Name: "a", Sink: capture}, {Name: "b", Sink: capture}, {Name: "nil"}},
	})

	svc.NotifyTransactionFailure(ctx, notify.TransactionFailurePayload{CallID: "c1", Method: "approve"})

	if len(received) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(received))
	}
	if received[0].Severity != notify.SeverityCritical {
		t.Fatalf("expected severity to default to critical, got %s", received[0].Severity)
	}
	if received[0].OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be stamped")
	}
}

func TestServiceDeliversEachCallOnce(t *testing.T) {
	var calls int
	svc := NewService(Options{
		Sinks: []SinkRegistration{{
			Sink: notify.SinkFunc(func(context.Context, notify.TransactionFailurePayload) error {
				calls++
				return nil
			}),
		}},
	})

	for range 3 {
		svc.NotifyTransactionFailure(context.Background(), notify.TransactionFailurePayload{CallID: "same"})
	}
	svc.NotifyTransactionFailure(context.Background(), notify.TransactionFailurePayload{CallID: "other"})

	if calls != 2 {
		t.Fatalf("expected 2 deliveries, got %d", calls)
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
	svc.NotifyTransactionFailure(context.Background(), notify.TransactionFailurePayload{CallID: "x"})
}

func TestServiceLogsErrors(t *testing.T) {
	svc := NewService(Options{
		Sinks: []SinkRegistration{{
			Name: "fail",
			Sink: notify.SinkFunc(func(context.Context, notify.TransactionFailurePayload) error {
				return errors.New("boom")
			}),
		}},
	})

	svc.NotifyTransactionFailure(context.Background(), notify.TransactionFailurePayload{CallID: "123"})
}
