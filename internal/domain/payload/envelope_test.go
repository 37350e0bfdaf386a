package payload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestEnvelope_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		data any
		read func(*Envelope) any
	}{
		{
			name: "fund response",
			kind: KindFundResponse,
			data: FundResponse{ReportingAPIEndpoint: "https://seller.example/report", WalletAddress: "0xabc"},
			read: func(e *Envelope) any { return *FirstAs[FundResponse](e) },
		},
		{
			name: "open positions list",
			kind: KindOpenPosition,
			data: []OpenPosition{
				{Symbol: "BTC", Amount: 10, Chain: "base", TP: TPSLConfig{Percentage: f64(5)}, SL: TPSLConfig{Price: f64(90000)}},
				{Symbol: "ETH", Amount: 2.5, ContractAddress: "0xeth", TP: TPSLConfig{}, SL: TPSLConfig{Percentage: f64(2)}},
			},
			read: func(e *Envelope) any {
				var out []OpenPosition
				for _, p := range DataAs[OpenPosition](e) {
					out = append(out, *p)
				}
				return out
			},
		},
		{
			name: "close position",
			kind: KindClosePosition,
			data: ClosePosition{PositionID: 3, Amount: 4.25},
			read: func(e *Envelope) any { return *FirstAs[ClosePosition](e) },
		},
		{
			name: "close partial position",
			kind: KindClosePartialPosition,
			data: ClosePosition{PositionID: 9, Amount: 1},
			read: func(e *Envelope) any { return *FirstAs[ClosePosition](e) },
		},
		{
			name: "position fulfilled",
			kind: KindPositionFulfilled,
			data: PositionFulfilled{
				Symbol: "SOL", Amount: 12, ContractAddress: "0xsol", Type: FulfilledTakeProfit,
				PnL: 1.5, EntryPrice: 100, ExitPrice: 112.5,
			},
			read: func(e *Envelope) any { return *FirstAs[PositionFulfilled](e) },
		},
		{
			name: "unfulfilled position",
			kind: KindUnfulfilledPosition,
			data: UnfulfilledPosition{Symbol: "DOGE", Amount: 3, ContractAddress: "0xdoge", Type: UnfulfilledPartial, Reason: "thin book"},
			read: func(e *Envelope) any { return *FirstAs[UnfulfilledPosition](e) },
		},
		{
			name: "close job and withdraw",
			kind: KindCloseJobAndWithdraw,
			data: CloseJobAndWithdraw{Message: "Close job and withdraw all"},
			read: func(e *Envelope) any { return *FirstAs[CloseJobAndWithdraw](e) },
		},
		{
			name: "negotiation terms",
			kind: KindNegotiationTerms,
			data: NegotiationTerms{Name: "meme generator", ServiceRequirement: "a cat wearing a hat"},
			read: func(e *Envelope) any { return *FirstAs[NegotiationTerms](e) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := New(tt.kind, tt.data)
			require.NoError(t, err)

			content, err := env.Content()
			require.NoError(t, err)

			decoded, err := Decode(content)
			require.NoError(t, err)
			assert.Equal(t, env, decoded)
			assert.Equal(t, tt.kind, decoded.Kind)
			assert.Equal(t, tt.data, tt.read(decoded))

			variant, err := decoded.Payload()
			require.NoError(t, err)
			assert.Equal(t, tt.kind, variant.Kind())
		})
	}
}

func TestEnvelope_WireFormat(t *testing.T) {
	env, err := New(KindClosePartialPosition, ClosePosition{PositionID: 1, Amount: 2})
	require.NoError(t, err)

	content, err := env.Content()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"close_partial_position","data":{"positionId":1,"amount":2}}`, content)
	assert.False(t, env.IsList())
}

func TestDecode_NoPayload(t *testing.T) {
	for _, content := range []string{
		"",
		"   ",
		"Job 12 accepted.",
		`["not","an","object"]`,
		`{"name":"svc","serviceRequirement":"do it"}`,
	} {
		env, err := Decode(content)
		assert.Nil(t, env, content)
		assert.ErrorIs(t, err, ErrNoPayload, content)
		assert.Nil(t, DataAs[OpenPosition](env))
		assert.Nil(t, FirstAs[OpenPosition](env))
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  DecodeReason
	}{
		{name: "broken json", content: `{"type":"open_position","data":`, reason: ReasonSyntax},
		{name: "unknown kind", content: `{"type":"teleport","data":{}}`, reason: ReasonUnknownKind},
		{name: "kind not a string", content: `{"type":7,"data":{}}`, reason: ReasonSchema},
		{name: "missing type", content: `{"data":{"message":"x"}}`, reason: ReasonSchema},
		{name: "missing data", content: `{"type":"close_job_and_withdraw"}`, reason: ReasonSchema},
		{name: "scalar data", content: `{"type":"close_job_and_withdraw","data":"x"}`, reason: ReasonSchema},
		{name: "list of scalars", content: `{"type":"open_position","data":[1,2]}`, reason: ReasonSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env *Envelope
			require.NotPanics(t, func() {
				var err error
				env, err = Decode(tt.content)
				var decodeErr *DecodeError
				require.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, tt.reason, decodeErr.Reason)
			})
			assert.Nil(t, env)
			assert.Nil(t, DataAs[CloseJobAndWithdraw](env))
		})
	}
}

func TestDataAs_SingleRecordSchemaMismatch(t *testing.T) {
	env, err := Decode(`{"type":"close_partial_position","data":{"positionId":1}}`)
	require.NoError(t, err, "envelope level only checks the data shape")

	assert.Nil(t, DataAs[ClosePosition](env))
	assert.Nil(t, FirstAs[ClosePosition](env))

	_, err = env.Payload()
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, ReasonSchema, decodeErr.Reason)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "amount", fieldErr.Field)
}

func TestDataAs_ListValidatesEntriesIndependently(t *testing.T) {
	content := `{"type":"position_fulfilled","data":[
		{"symbol":"BTC","amount":1,"contractAddress":"0x1","type":"TP","pnl":1,"entryPrice":1,"exitPrice":2},
		{"symbol":"ETH","amount":2,"contractAddress":"0x2","type":"MOON","pnl":0,"entryPrice":1,"exitPrice":1},
		{"symbol":"SOL","amount":3,"contractAddress":"0x3","type":"SL","pnl":-1,"entryPrice":2,"exitPrice":1},
		{"symbol":"XRP"}
	]}`
	env, err := Decode(content)
	require.NoError(t, err)
	require.True(t, env.IsList())

	got := DataAs[PositionFulfilled](env)
	require.Len(t, got, 4)
	require.NotNil(t, got[0])
	assert.Equal(t, "BTC", got[0].Symbol)
	assert.Nil(t, got[1], "invalid literal type")
	require.NotNil(t, got[2])
	assert.Equal(t, FulfilledStopLoss, got[2].Type)
	assert.Nil(t, got[3], "missing required fields")

	assert.Equal(t, "BTC", FirstAs[PositionFulfilled](env).Symbol)

	_, err = env.Payload()
	assert.Error(t, err, "the sum type is strict")
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New(Kind("bogus"), CloseJobAndWithdraw{Message: "x"})
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, ReasonUnknownKind, decodeErr.Reason)

	_, err = New(KindCloseJobAndWithdraw, "just text")
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, ReasonSchema, decodeErr.Reason)
}

func TestNegotiationTerms_Aliases(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{`{"name":"a","serviceRequirement":"first"}`, "first"},
		{`{"name":"a","service_requirement":"snake"}`, "snake"},
		{`{"name":"a","message":"legacy"}`, "legacy"},
		{`{"name":"a","serviceRequirement":{"size":"L"}}`, `{"size":"L"}`},
		{`{"name":"a"}`, ""},
	}
	for _, tt := range tests {
		env, err := Decode(`{"type":"negotiation_terms","data":` + tt.content + `}`)
		require.NoError(t, err)
		terms := FirstAs[NegotiationTerms](env)
		require.NotNil(t, terms)
		assert.Equal(t, "a", terms.Name)
		assert.Equal(t, tt.want, terms.RequirementText())
	}
}

func TestMatch(t *testing.T) {
	env, err := New(KindCloseJobAndWithdraw, CloseJobAndWithdraw{Message: "bye"})
	require.NoError(t, err)
	variant, err := env.Payload()
	require.NoError(t, err)

	var seen string
	err = Match(variant, Cases{
		CloseJobAndWithdraw: func(v CloseJobRequests) error {
			seen = v[0].Message
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "bye", seen)

	err = Match(variant, Cases{})
	var unhandled *UnhandledError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, KindCloseJobAndWithdraw, unhandled.Kind)

	assert.True(t, errors.Is(Match(nil, Cases{}), ErrNoPayload))
}

func TestKind_UnmarshalText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte(" Open_Position ")))
	assert.Equal(t, KindOpenPosition, k)
	assert.Error(t, k.UnmarshalText([]byte("nope")))
	assert.Len(t, Kinds(), 8)
	for _, kind := range Kinds() {
		assert.True(t, kind.Valid(), kind)
	}
}
