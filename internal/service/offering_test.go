package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/txpipeline"
)

const promptSchema = `{
	"type": "object",
	"properties": {"prompt": {"type": "string"}, "count": {"type": "number"}},
	"required": ["prompt"]
}`

func sellerAgent(schema json.RawMessage) *model.Agent {
	return &model.Agent{
		ID:            1,
		WalletAddress: testSeller,
		Offerings: []model.Offering{
			{Name: "meme", Price: 2, RequirementSchema: schema},
		},
	}
}

func TestOffering_InitiateJobValidatesRequirement(t *testing.T) {
	f := newClientFixture(t)
	f.relay.Logs = map[string][]core.Log{txpipeline.MethodCreateJob: {{Address: testEscrow, Data: "0x10"}}}
	f.api.EXPECT().NotifyJobInitiated(gomock.Any(), gomock.Any()).Return(nil)

	offerings := f.client.Offerings(sellerAgent(json.RawMessage(promptSchema)))
	require.Len(t, offerings, 1)

	jobID, err := offerings[0].InitiateJob(context.Background(), map[string]any{"prompt": "a cat", "count": 2}, "", testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(16), jobID)

	calls := f.relay.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []any{int64(16), "2000000", testToken}, calls[1].Args)
	assert.JSONEq(t, `{"name":"meme","serviceRequirement":{"prompt":"a cat","count":2}}`, calls[2].Args[1].(string))
}

func TestOffering_InitiateJobRejectsInvalidRequirement(t *testing.T) {
	f := newClientFixture(t)
	offering := f.client.Offerings(sellerAgent(json.RawMessage(promptSchema)))[0]

	_, err := offering.InitiateJob(context.Background(), map[string]any{"count": 2}, "", testNow)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = offering.InitiateJob(context.Background(), "just text", "", testNow)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, f.relay.Calls())
}

func TestOffering_StringRequirementWithoutSchema(t *testing.T) {
	f := newClientFixture(t)
	f.relay.Logs = map[string][]core.Log{txpipeline.MethodCreateJob: {{Address: testEscrow, Data: "0x1"}}}
	f.api.EXPECT().NotifyJobInitiated(gomock.Any(), gomock.Any()).Return(nil)

	offering := f.client.Offerings(sellerAgent(nil))[0]
	_, err := offering.InitiateJob(context.Background(), "draw a dog", "", testNow)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"meme","message":"draw a dog"}`, f.relay.Calls()[2].Args[1].(string))
}

func TestOffering_SchemaEncodedAsString(t *testing.T) {
	encoded, err := json.Marshal(promptSchema)
	require.NoError(t, err)
	f := newClientFixture(t)
	offering := f.client.Offerings(sellerAgent(encoded))[0]

	_, err = offering.InitiateJob(context.Background(), map[string]any{"other": true}, "", testNow)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
