package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

func escrowMemo(t *testing.T, id int64, kind payload.Kind, data any) *model.Memo {
	t.Helper()
	env, err := payload.New(kind, data)
	require.NoError(t, err)
	content, err := env.Content()
	require.NoError(t, err)
	return model.NewMemo(id, model.MemoTypePayableTransferEscrow, content, model.PhaseTransaction, model.MemoStatusPending)
}

func TestRequireLatest(t *testing.T) {
	j := &model.Job{ID: 1, Memos: []*model.Memo{
		model.NewMemo(10, model.MemoTypeMessage, "req", model.PhaseNegotiation, model.MemoStatusApproved),
		model.NewMemo(11, model.MemoTypeMessage, "ok", model.PhaseTransaction, model.MemoStatusPending),
	}}

	memo, err := RequireLatest(j, model.PhaseTransaction)
	require.NoError(t, err)
	assert.Equal(t, int64(11), memo.ID)

	_, err = RequireLatest(j, model.PhaseNegotiation)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Contains(t, err.Error(), "TRANSACTION")

	memo, err = RequireLatestIn(j, model.PhaseEvaluation, model.PhaseTransaction)
	require.NoError(t, err)
	assert.Equal(t, int64(11), memo.ID)

	_, err = RequireLatest(&model.Job{ID: 2}, model.PhaseNegotiation)
	assert.True(t, apperrors.IsPrecondition(err))

	_, err = RequireLatest(nil, model.PhaseNegotiation)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestRequireMemo(t *testing.T) {
	open := escrowMemo(t, 5, payload.KindOpenPosition, []payload.OpenPosition{{Symbol: "BTC", Amount: 1}})
	msg := model.NewMemo(6, model.MemoTypeMessage, "hi", model.PhaseTransaction, model.MemoStatusPending)
	j := &model.Job{ID: 3, Memos: []*model.Memo{open, msg}}

	tests := []struct {
		name  string
		id    int64
		phase model.Phase
		typ   model.MemoType
		ok    bool
	}{
		{name: "match", id: 5, phase: model.PhaseTransaction, typ: model.MemoTypePayableTransferEscrow, ok: true},
		{name: "missing memo", id: 99, phase: model.PhaseTransaction, typ: model.MemoTypePayableTransferEscrow},
		{name: "wrong phase", id: 5, phase: model.PhaseEvaluation, typ: model.MemoTypePayableTransferEscrow},
		{name: "wrong type", id: 6, phase: model.PhaseTransaction, typ: model.MemoTypePayableRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memo, err := RequireMemo(j, tt.id, tt.phase, tt.typ)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.id, memo.ID)
				return
			}
			assert.Nil(t, memo)
			assert.True(t, apperrors.IsPrecondition(err), "got %v", err)
		})
	}
}

func TestRequirePayloadKind(t *testing.T) {
	open := escrowMemo(t, 5, payload.KindOpenPosition, []payload.OpenPosition{{Symbol: "BTC", Amount: 1}})

	env, err := RequirePayloadKind(open, payload.KindOpenPosition)
	require.NoError(t, err)
	assert.Equal(t, payload.KindOpenPosition, env.Kind)

	_, err = RequirePayloadKind(open, payload.KindClosePosition)
	assert.True(t, apperrors.IsPrecondition(err))

	plain := model.NewMemo(6, model.MemoTypeMessage, "hi", model.PhaseTransaction, model.MemoStatusPending)
	_, err = RequirePayloadKind(plain, payload.KindOpenPosition)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.ErrorIs(t, err, payload.ErrNoPayload)

	_, err = RequirePayloadKind(nil, payload.KindOpenPosition)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestRequireMemoWithPayload(t *testing.T) {
	closeReq := escrowMemo(t, 8, payload.KindClosePosition, payload.RequestClosePosition{PositionID: 4})
	j := &model.Job{ID: 9, Memos: []*model.Memo{closeReq}}

	memo, env, err := RequireMemoWithPayload(j, 8, model.PhaseTransaction,
		model.MemoTypePayableTransferEscrow, payload.KindClosePosition)
	require.NoError(t, err)
	assert.Same(t, closeReq, memo)
	assert.Equal(t, payload.KindClosePosition, env.Kind)

	_, _, err = RequireMemoWithPayload(j, 8, model.PhaseTransaction,
		model.MemoTypeMessage, payload.KindClosePosition)
	assert.True(t, apperrors.IsPrecondition(err))
}
