package payload

import "fmt"

// Payload is the closed set of typed envelope contents. Each variant is a
// slice of the kind's canonical record; a single-record envelope yields a
// one-element slice.
type Payload interface {
	Kind() Kind
	sealed()
}

type (
	FundResponses         []FundResponse
	OpenPositions         []OpenPosition
	ClosePositions        []RequestClosePosition
	ClosePartialPositions []ClosePosition
	FulfilledPositions    []PositionFulfilled
	UnfulfilledPositions  []UnfulfilledPosition
	CloseJobRequests      []CloseJobAndWithdraw
	Negotiations          []NegotiationTerms
)

func (FundResponses) Kind() Kind         { return KindFundResponse }
func (OpenPositions) Kind() Kind         { return KindOpenPosition }
func (ClosePositions) Kind() Kind        { return KindClosePosition }
func (ClosePartialPositions) Kind() Kind { return KindClosePartialPosition }
func (FulfilledPositions) Kind() Kind    { return KindPositionFulfilled }
func (UnfulfilledPositions) Kind() Kind  { return KindUnfulfilledPosition }
func (CloseJobRequests) Kind() Kind      { return KindCloseJobAndWithdraw }
func (Negotiations) Kind() Kind          { return KindNegotiationTerms }

func (FundResponses) sealed()         {}
func (OpenPositions) sealed()         {}
func (ClosePositions) sealed()        {}
func (ClosePartialPositions) sealed() {}
func (FulfilledPositions) sealed()    {}
func (UnfulfilledPositions) sealed()  {}
func (CloseJobRequests) sealed()      {}
func (Negotiations) sealed()          {}

// Payload decodes the envelope into its kind's variant. Unlike DataAs, every
// record must validate.
func (e *Envelope) Payload() (Payload, error) {
	if e == nil {
		return nil, ErrNoPayload
	}
	switch e.Kind {
	case KindFundResponse:
		v, err := decodeAll[FundResponse](e)
		if err != nil {
			return nil, err
		}
		return FundResponses(v), nil
	case KindOpenPosition:
		v, err := decodeAll[OpenPosition](e)
		if err != nil {
			return nil, err
		}
		return OpenPositions(v), nil
	case KindClosePosition:
		v, err := decodeAll[RequestClosePosition](e)
		if err != nil {
			return nil, err
		}
		return ClosePositions(v), nil
	case KindClosePartialPosition:
		v, err := decodeAll[ClosePosition](e)
		if err != nil {
			return nil, err
		}
		return ClosePartialPositions(v), nil
	case KindPositionFulfilled:
		v, err := decodeAll[PositionFulfilled](e)
		if err != nil {
			return nil, err
		}
		return FulfilledPositions(v), nil
	case KindUnfulfilledPosition:
		v, err := decodeAll[UnfulfilledPosition](e)
		if err != nil {
			return nil, err
		}
		return UnfulfilledPositions(v), nil
	case KindCloseJobAndWithdraw:
		v, err := decodeAll[CloseJobAndWithdraw](e)
		if err != nil {
			return nil, err
		}
		return CloseJobRequests(v), nil
	case KindNegotiationTerms:
		v, err := decodeAll[NegotiationTerms](e)
		if err != nil {
			return nil, err
		}
		return Negotiations(v), nil
	default:
		return nil, &DecodeError{Reason: ReasonUnknownKind, Kind: e.Kind, Err: fmt.Errorf("unrecognized kind")}
	}
}

// Cases holds one handler per variant. Match fails when the matching
// handler is nil, so a consumer that forgets a kind finds out at the call
// site instead of silently dropping the payload.
type Cases struct {
	FundResponse         func(FundResponses) error
	OpenPosition         func(OpenPositions) error
	ClosePosition        func(ClosePositions) error
	ClosePartialPosition func(ClosePartialPositions) error
	PositionFulfilled    func(FulfilledPositions) error
	UnfulfilledPosition  func(UnfulfilledPositions) error
	CloseJobAndWithdraw  func(CloseJobRequests) error
	NegotiationTerms     func(Negotiations) error
}

// UnhandledError is returned by Match when no handler exists for a variant.
type UnhandledError struct {
	Kind Kind
}

func (e *UnhandledError) Error() string { return fmt.Sprintf("no handler for payload kind %s", e.Kind) }

// Match dispatches p to the handler for its variant.
func Match(p Payload, c Cases) error {
	switch v := p.(type) {
	case FundResponses:
		return call(c.FundResponse, v)
	case OpenPositions:
		return call(c.OpenPosition, v)
	case ClosePositions:
		return call(c.ClosePosition, v)
	case ClosePartialPositions:
		return call(c.ClosePartialPosition, v)
	case FulfilledPositions:
		return call(c.PositionFulfilled, v)
	case UnfulfilledPositions:
		return call(c.UnfulfilledPosition, v)
	case CloseJobRequests:
		return call(c.CloseJobAndWithdraw, v)
	case Negotiations:
		return call(c.NegotiationTerms, v)
	case nil:
		return ErrNoPayload
	default:
		return fmt.Errorf("unknown payload variant %T", p)
	}
}

func call[P Payload](fn func(P) error, v P) error {
	if fn == nil {
		return &UnhandledError{Kind: v.Kind()}
	}
	return fn(v)
}
