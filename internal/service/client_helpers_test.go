package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	"github.com/quocan1101-cloud/acp-hackathon/internal/mocks"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/txpipeline"
)

const (
	testEscrow   = "0xEscrow"
	testToken    = "0xToken"
	testBuyer    = "0xBuyer"
	testSeller   = "0xSeller"
	testEvalAddr = "0xEvaluator"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clientFixture struct {
	client *Client
	relay  *mocks.RecordingRelay
	api    *mocks.MockACPAPI
}

func newClientFixture(t *testing.T) *clientFixture {
	t.Helper()
	relay := &mocks.RecordingRelay{}
	api := mocks.NewMockACPAPI(gomock.NewController(t))
	pipeline, err := txpipeline.New(txpipeline.Options{
		Relay:     relay,
		Policy:    txpipeline.RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return 0 }},
		Observers: txpipeline.Observers{Logger: discardLogger()},
	})
	require.NoError(t, err)
	client := MustNewClient(ClientOptions{
		Pipeline:     pipeline,
		API:          api,
		Calls:        txpipeline.Calls{Escrow: testEscrow, PaymentToken: testToken},
		AgentAddress: testBuyer,
		Logger:       discardLogger(),
		Clock:        func() time.Time { return testNow },
	})
	return &clientFixture{client: client, relay: relay, api: api}
}

func (f *clientFixture) job(phase model.Phase, memos ...*model.Memo) *Job {
	return f.client.Job(&model.Job{
		ID:               7,
		ProviderAddress:  testSeller,
		ClientAddress:    testBuyer,
		EvaluatorAddress: testEvalAddr,
		Price:            10,
		Phase:            phase,
		Memos:            memos,
	})
}

func (f *clientFixture) callsNamed(method string) []core.Call {
	var out []core.Call
	for _, c := range f.relay.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func envelopeContent(t *testing.T, kind payload.Kind, data any) string {
	t.Helper()
	env, err := payload.New(kind, data)
	require.NoError(t, err)
	content, err := env.Content()
	require.NoError(t, err)
	return content
}

func pendingMemo(id int64, typ model.MemoType, content string, next model.Phase) *model.Memo {
	return model.NewMemo(id, typ, content, next, model.MemoStatusPending)
}
