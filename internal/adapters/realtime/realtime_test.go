package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/net/websocket"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/mocks"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/dispatch"
)

type sinkRecorder struct {
	mu     sync.Mutex
	events []dispatch.Event
}

var _ dispatch.Sink = (*sinkRecorder)(nil)

func (s *sinkRecorder) Push(ev dispatch.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sinkRecorder) snapshot() []dispatch.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dispatch.Event(nil), s.events...)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func jobWithMemos(id int64, phase model.Phase, memos ...*model.Memo) *model.Job {
	return &model.Job{ID: id, Phase: phase, EvaluatorAddress: "0xEval", Memos: memos}
}

func TestIngress_ResolvesMemoToSign(t *testing.T) {
	sink := &sinkRecorder{}
	in := NewIngress(sink, nil, quiet())

	memoID := int64(2)
	job := jobWithMemos(1, model.PhaseNegotiation,
		model.NewMemo(1, model.MemoTypeMessage, "a", model.PhaseNegotiation, model.MemoStatusApproved),
		model.NewMemo(2, model.MemoTypeMessage, "b", model.PhaseTransaction, model.MemoStatusPending),
	)
	job.MemoToSign = &memoID

	assert.True(t, in.Deliver(context.Background(), dispatch.KindNewTask, job))
	assert.False(t, in.Deliver(context.Background(), dispatch.KindNewTask, nil))

	events := sink.snapshot()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].MemoToSign)
	assert.Equal(t, int64(2), events[0].MemoToSign.ID)
}

func TestIngress_DropsDuplicates(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := core.NewMockCacheRepository(ctrl)
	gomock.InOrder(
		cache.EXPECT().SetIfNotExists(gomock.Any(), "acp:event:1:5:new_task", []byte("1"), time.Minute).Return(true, nil),
		cache.EXPECT().SetIfNotExists(gomock.Any(), "acp:event:1:5:new_task", []byte("1"), time.Minute).Return(false, nil),
		cache.EXPECT().SetIfNotExists(gomock.Any(), "acp:event:1:5:new_task", []byte("1"), time.Minute).Return(false, errors.New("redis down")),
	)

	sink := &sinkRecorder{}
	in := NewIngress(sink, core.NewEventDeduper(cache, time.Minute), quiet())
	job := jobWithMemos(1, model.PhaseNegotiation, model.NewMemo(5, model.MemoTypeMessage, "x", model.PhaseNegotiation, model.MemoStatusPending))

	assert.True(t, in.Deliver(context.Background(), dispatch.KindNewTask, job))
	assert.False(t, in.Deliver(context.Background(), dispatch.KindNewTask, job))
	assert.True(t, in.Deliver(context.Background(), dispatch.KindNewTask, job), "dedupe errors fail open")
	assert.Len(t, sink.snapshot(), 2)
}

func TestPoller_EmitsOnlyOnChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockACPAPI(ctrl)
	sink := &sinkRecorder{}

	first := []*model.Job{
		jobWithMemos(1, model.PhaseNegotiation, model.NewMemo(10, model.MemoTypeMessage, "x", model.PhaseNegotiation, model.MemoStatusPending)),
		jobWithMemos(2, model.PhaseEvaluation, model.NewMemo(20, model.MemoTypeObjectURL, "d", model.PhaseCompleted, model.MemoStatusPending)),
		jobWithMemos(3, model.PhaseRequest),
	}
	second := []*model.Job{
		jobWithMemos(1, model.PhaseNegotiation, model.NewMemo(10, model.MemoTypeMessage, "x", model.PhaseNegotiation, model.MemoStatusPending)),
		jobWithMemos(2, model.PhaseEvaluation,
			model.NewMemo(20, model.MemoTypeObjectURL, "d", model.PhaseCompleted, model.MemoStatusPending),
			model.NewMemo(21, model.MemoTypeMessage, "again", model.PhaseCompleted, model.MemoStatusPending)),
	}
	gomock.InOrder(
		api.EXPECT().ListJobs(gomock.Any(), model.JobListActive, model.Pagination{Page: 1, PageSize: 50}).Return(first, nil),
		api.EXPECT().ListJobs(gomock.Any(), model.JobListActive, model.Pagination{Page: 1, PageSize: 50}).Return(second, nil),
	)

	p, err := NewPoller(PollerOptions{API: api, Ingress: NewIngress(sink, nil, quiet()), WalletAddress: "0xeval", Logger: quiet()})
	require.NoError(t, err)

	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, dispatch.KindNewTask, events[0].Kind)
	assert.Equal(t, dispatch.KindEvaluate, events[1].Kind)
	assert.Equal(t, int64(2), events[2].JobID())
}

func TestPoller_Pages(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockACPAPI(ctrl)
	full := []*model.Job{
		jobWithMemos(1, model.PhaseNegotiation, model.NewMemo(1, model.MemoTypeMessage, "", model.PhaseNegotiation, model.MemoStatusPending)),
		jobWithMemos(2, model.PhaseNegotiation, model.NewMemo(2, model.MemoTypeMessage, "", model.PhaseNegotiation, model.MemoStatusPending)),
	}
	api.EXPECT().ListJobs(gomock.Any(), model.JobListActive, model.Pagination{Page: 1, PageSize: 2}).Return(full, nil)
	api.EXPECT().ListJobs(gomock.Any(), model.JobListActive, model.Pagination{Page: 2, PageSize: 2}).Return(nil, nil)

	p, err := NewPoller(PollerOptions{API: api, Ingress: NewIngress(&sinkRecorder{}, nil, quiet()), PageSize: 2, Logger: quiet()})
	require.NoError(t, err)
	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSocketSource_ForwardsFrames(t *testing.T) {
	var gotQuery, gotLang string
	var mu sync.Mutex
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		mu.Lock()
		gotQuery = conn.Request().URL.RawQuery
		gotLang = conn.Request().Header.Get("x-sdk-language")
		mu.Unlock()
		_ = websocket.Message.Send(conn, `{"event":"roomJoined","data":"room-1"}`)
		_ = websocket.Message.Send(conn, `{"event":"onNewTask","data":{"id":7,"phase":1,"price":"2","memoToSign":3,
			"memos":[{"id":3,"memoType":0,"content":"hi","nextPhase":2,"status":"PENDING"}],"context":"{\"k\":1}"}}`)
		_ = websocket.Message.Send(conn, `{"event":"onEvaluate","data":{"id":8,"phase":3,"memos":[]}}`)
		_ = websocket.Message.Send(conn, `{"event":"onNewTask","data":"garbage"}`)
		var ignored string
		_ = websocket.Message.Receive(conn, &ignored)
	}))
	t.Cleanup(srv.Close)

	sink := &sinkRecorder{}
	src, err := NewSocketSource(SocketOptions{
		URL:           "ws" + strings.TrimPrefix(srv.URL, "http"),
		WalletAddress: "0xBuyer",
		Evaluator:     true,
		Ingress:       NewIngress(sink, nil, quiet()),
		Logger:        quiet(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("socket source did not stop")
	}

	events := sink.snapshot()
	assert.Equal(t, dispatch.KindNewTask, events[0].Kind)
	assert.Equal(t, int64(7), events[0].JobID())
	require.NotNil(t, events[0].MemoToSign)
	assert.Equal(t, int64(3), events[0].MemoToSign.ID)
	assert.Equal(t, map[string]any{"k": float64(1)}, events[0].Job.Context)
	assert.Equal(t, dispatch.KindEvaluate, events[1].Kind)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, gotQuery, "walletAddress=0xBuyer")
	assert.Contains(t, gotQuery, "evaluatorAddress=0xBuyer")
	assert.Equal(t, "go", gotLang)
}

func TestNewSocketSource_Validation(t *testing.T) {
	_, err := NewSocketSource(SocketOptions{})
	require.Error(t, err)
	_, err = NewSocketSource(SocketOptions{URL: "ws://x", WalletAddress: "0x1"})
	require.Error(t, err)
}
