// Package payload implements the typed envelope carried inside memo content.
//
// Memo content is opaque text. When it holds a JSON object of the form
// {"type": <kind>, "data": <record | [record...]>} it is decoded into an
// Envelope, whose data can then be read as a concrete record shape with
// DataAs or as the closed Payload sum type with Envelope.Payload.
package payload

import (
	"fmt"
	"strings"
)

// Kind identifies the business meaning of an envelope's data.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Kind string

const (
	KindFundResponse         Kind = "fund_response"
	KindOpenPosition         Kind = "open_position"
	KindClosePosition        Kind = "close_position"
	KindClosePartialPosition Kind = "close_partial_position"
	KindPositionFulfilled    Kind = "position_fulfilled"
	KindUnfulfilledPosition  Kind = "unfulfilled_position"
	KindCloseJobAndWithdraw  Kind = "close_job_and_withdraw"
	KindNegotiationTerms     Kind = "negotiation_terms"
)

// Kinds lists every recognized kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindFundResponse,
		KindOpenPosition,
		KindClosePosition,
		KindClosePartialPosition,
		KindPositionFulfilled,
		KindUnfulfilledPosition,
		KindCloseJobAndWithdraw,
		KindNegotiationTerms,
	}
}

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool {
	switch k {
	case KindFundResponse, KindOpenPosition, KindClosePosition, KindClosePartialPosition,
		KindPositionFulfilled, KindUnfulfilledPosition, KindCloseJobAndWithdraw, KindNegotiationTerms:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v := Kind(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid payload kind: %q", string(text))
	}
	*k = v
	return nil
}
