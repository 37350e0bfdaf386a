package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldError reports a required field that is absent or null.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string { return fmt.Sprintf("missing required field %q", e.Field) }

// decodeStrict unmarshals data into dst after checking that every required
// key is present and non-null. Unknown keys are ignored.
func decodeStrict(data []byte, dst any, required ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, name := range required {
		raw, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return &FieldError{Field: name}
		}
	}
	return json.Unmarshal(data, dst)
}

// FundResponse tells the buyer where position reports will be published.
type FundResponse struct {
	ReportingAPIEndpoint string `json:"reportingApiEndpoint"`
	WalletAddress        string `json:"walletAddress,omitempty"`
}

func (p *FundResponse) UnmarshalJSON(data []byte) error {
	type alias FundResponse
	var v alias
	if err := decodeStrict(data, &v, "reportingApiEndpoint"); err != nil {
		return err
	}
	*p = FundResponse(v)
	return nil
}

// TPSLConfig is a take-profit or stop-loss trigger. Either field may be set.
type TPSLConfig struct {
	Price      *float64 `json:"price,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// OpenPosition asks the seller to open a position funded from escrow.
type OpenPosition struct {
	Symbol          string     `json:"symbol"`
	Amount          float64    `json:"amount"`
	Chain           string     `json:"chain,omitempty"`
	ContractAddress string     `json:"contractAddress,omitempty"`
	TP              TPSLConfig `json:"tp"`
	SL              TPSLConfig `json:"sl"`
}

func (p *OpenPosition) UnmarshalJSON(data []byte) error {
	type alias OpenPosition
	var v alias
	if err := decodeStrict(data, &v, "symbol", "amount", "tp", "sl"); err != nil {
		return err
	}
	*p = OpenPosition(v)
	return nil
}

// UpdateTPSLConfig adjusts an existing trigger.
type UpdateTPSLConfig struct {
	AmountPercentage *float64 `json:"amountPercentage,omitempty"`
}

// UpdatePosition changes the triggers of an open position.
type UpdatePosition struct {
	Symbol          string            `json:"symbol"`
	ContractAddress string            `json:"contractAddress,omitempty"`
	TP              *UpdateTPSLConfig `json:"tp,omitempty"`
	SL              *UpdateTPSLConfig `json:"sl,omitempty"`
}

func (p *UpdatePosition) UnmarshalJSON(data []byte) error {
	type alias UpdatePosition
	var v alias
	if err := decodeStrict(data, &v, "symbol"); err != nil {
		return err
	}
	*p = UpdatePosition(v)
	return nil
}

// ClosePosition closes (part of) a position and names the amount returned.
type ClosePosition struct {
	PositionID int64   `json:"positionId"`
	Amount     float64 `json:"amount"`
}

func (p *ClosePosition) UnmarshalJSON(data []byte) error {
	type alias ClosePosition
	var v alias
	if err := decodeStrict(data, &v, "positionId", "amount"); err != nil {
		return err
	}
	*p = ClosePosition(v)
	return nil
}

// RequestClosePosition is the buyer's request to close a position.
type RequestClosePosition struct {
	PositionID int64 `json:"positionId"`
}

func (p *RequestClosePosition) UnmarshalJSON(data []byte) error {
	type alias RequestClosePosition
	var v alias
	if err := decodeStrict(data, &v, "positionId"); err != nil {
		return err
	}
	*p = RequestClosePosition(v)
	return nil
}

// FulfillmentType says why a position was closed.
type FulfillmentType string

const (
	FulfilledTakeProfit FulfillmentType = "TP"
	FulfilledStopLoss   FulfillmentType = "SL"
	FulfilledClose      FulfillmentType = "CLOSE"
)

// PositionFulfilled reports a closed position and its realized result.
type PositionFulfilled struct {
	Symbol          string          `json:"symbol"`
	Amount          float64         `json:"amount"`
	ContractAddress string          `json:"contractAddress"`
	Type            FulfillmentType `json:"type"`
	PnL             float64         `json:"pnl"`
	EntryPrice      float64         `json:"entryPrice"`
	ExitPrice       float64         `json:"exitPrice"`
}

func (p *PositionFulfilled) UnmarshalJSON(data []byte) error {
	type alias PositionFulfilled
	var v alias
	err := decodeStrict(data, &v,
		"symbol", "amount", "contractAddress", "type", "pnl", "entryPrice", "exitPrice")
	if err != nil {
		return err
	}
	switch v.Type {
	case FulfilledTakeProfit, FulfilledStopLoss, FulfilledClose:
	default:
		return fmt.Errorf("invalid fulfillment type %q", v.Type)
	}
	*p = PositionFulfilled(v)
	return nil
}

// UnfulfilledType says why a position could not be (fully) opened.
type UnfulfilledType string

const (
	UnfulfilledError   UnfulfilledType = "ERROR"
	UnfulfilledPartial UnfulfilledType = "PARTIAL"
)

// UnfulfilledPosition returns funds for a position that was not opened.
type UnfulfilledPosition struct {
	Symbol          string          `json:"symbol"`
	Amount          float64         `json:"amount"`
	ContractAddress string          `json:"contractAddress"`
	Type            UnfulfilledType `json:"type"`
	Reason          string          `json:"reason,omitempty"`
}

func (p *UnfulfilledPosition) UnmarshalJSON(data []byte) error {
	type alias UnfulfilledPosition
	var v alias
	if err := decodeStrict(data, &v, "symbol", "amount", "contractAddress", "type"); err != nil {
		return err
	}
	if v.Type != UnfulfilledError && v.Type != UnfulfilledPartial {
		return fmt.Errorf("invalid unfulfilled type %q", v.Type)
	}
	*p = UnfulfilledPosition(v)
	return nil
}

// CloseJobAndWithdraw asks the seller to close every position and settle.
type CloseJobAndWithdraw struct {
	Message string `json:"message"`
}

func (p *CloseJobAndWithdraw) UnmarshalJSON(data []byte) error {
	type alias CloseJobAndWithdraw
	var v alias
	if err := decodeStrict(data, &v, "message"); err != nil {
		return err
	}
	*p = CloseJobAndWithdraw(v)
	return nil
}

// NegotiationTerms is the buyer's opening request. ServiceRequirement holds
// either a string or a decoded JSON object.
type NegotiationTerms struct {
	Name               string `json:"name,omitempty"`
	ServiceRequirement any    `json:"serviceRequirement,omitempty"`
}

// UnmarshalJSON accepts serviceRequirement, service_requirement or message
// for the requirement, first match wins.
func (p *NegotiationTerms) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var out NegotiationTerms
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	for _, key := range []string{"serviceRequirement", "service_requirement", "message"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &out.ServiceRequirement); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		break
	}
	*p = out
	return nil
}

// RequirementText renders the service requirement as text; objects are
// re-encoded as JSON.
func (p NegotiationTerms) RequirementText() string {
	switch v := p.ServiceRequirement.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Deliverable is the seller's work product attached to the COMPLETED memo.
type Deliverable struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func (p *Deliverable) UnmarshalJSON(data []byte) error {
	type alias Deliverable
	var v alias
	if err := decodeStrict(data, &v, "type", "value"); err != nil {
		return err
	}
	*p = Deliverable(v)
	return nil
}
