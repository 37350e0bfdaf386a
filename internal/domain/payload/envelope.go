package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoPayload means the content was never meant to be an envelope (plain
// text, or a JSON object without a type/data pair).
var ErrNoPayload = errors.New("content carries no payload envelope")

// DecodeReason classifies a DecodeError.
type DecodeReason string

const (
	ReasonSyntax      DecodeReason = "syntax"
	ReasonUnknownKind DecodeReason = "unknown_kind"
	ReasonSchema      DecodeReason = "schema"
)

// DecodeError reports content that looks like an envelope but cannot be used
// as one.
type DecodeError struct {
	Reason DecodeReason
	Kind   Kind
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("decode %s payload (%s): %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode payload (%s): %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Envelope is the {type, data} wrapper. Data is kept raw until a consumer
// asks for a concrete shape.
type Envelope struct {
	Kind Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// New builds an envelope around a single record or a slice of records.
func New(kind Kind, data any) (*Envelope, error) {
	if !kind.Valid() {
		return nil, &DecodeError{Reason: ReasonUnknownKind, Kind: kind, Err: errors.New("unrecognized kind")}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	if err := checkDataShape(raw); err != nil {
		return nil, &DecodeError{Reason: ReasonSchema, Kind: kind, Err: err}
	}
	return &Envelope{Kind: kind, Data: raw}, nil
}

// Content renders the envelope as memo content.
func (e *Envelope) Content() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return string(b), nil
}

// IsList reports whether the envelope carries a list of records.
func (e *Envelope) IsList() bool {
	if e == nil {
		return false
	}
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Decode parses memo content into an envelope. It never panics. It returns
// ErrNoPayload for content that is not an envelope at all and *DecodeError
// for content that is a broken envelope.
func Decode(content string) (*Envelope, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, ErrNoPayload
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, &DecodeError{Reason: ReasonSyntax, Err: err}
	}

	rawKind, hasKind := fields["type"]
	rawData, hasData := fields["data"]
	if !hasKind && !hasData {
		return nil, ErrNoPayload
	}
	if !hasKind {
		return nil, &DecodeError{Reason: ReasonSchema, Err: &FieldError{Field: "type"}}
	}

	var name string
	if err := json.Unmarshal(rawKind, &name); err != nil {
		return nil, &DecodeError{Reason: ReasonSchema, Err: fmt.Errorf("type: %w", err)}
	}
	kind := Kind(name)
	if !kind.Valid() {
		return nil, &DecodeError{Reason: ReasonUnknownKind, Kind: kind, Err: errors.New("unrecognized kind")}
	}
	if !hasData {
		return nil, &DecodeError{Reason: ReasonSchema, Kind: kind, Err: &FieldError{Field: "data"}}
	}
	if err := checkDataShape(rawData); err != nil {
		return nil, &DecodeError{Reason: ReasonSchema, Kind: kind, Err: err}
	}
	return &Envelope{Kind: kind, Data: rawData}, nil
}

// checkDataShape accepts an object or an array of objects.
func checkDataShape(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return errors.New("empty data")
	}
	switch trimmed[0] {
	case '{':
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		for i, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '{' {
				return fmt.Errorf("data[%d] is not an object", i)
			}
		}
		return nil
	default:
		return errors.New("data must be an object or a list of objects")
	}
}

// records splits the raw data into one raw message per record.
func (e *Envelope) records() []json.RawMessage {
	if e == nil || len(e.Data) == 0 {
		return nil
	}
	if !e.IsList() {
		return []json.RawMessage{e.Data}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(e.Data, &items); err != nil {
		return nil
	}
	return items
}

// DataAs reads the envelope data as records of shape T. A single record yields
// a one-element slice. List entries are validated independently; an entry that
// fails validation is a nil slot and does not affect its neighbours. A nil
// envelope, or a single record that fails validation, yields nil.
func DataAs[T any](e *Envelope) []*T {
	raws := e.records()
	if len(raws) == 0 {
		return nil
	}
	out := make([]*T, len(raws))
	valid := 0
	for i, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out[i] = &v
		valid++
	}
	if !e.IsList() && valid == 0 {
		return nil
	}
	return out
}

// FirstAs returns the first record that decodes as T, or nil.
func FirstAs[T any](e *Envelope) *T {
	for _, v := range DataAs[T](e) {
		if v != nil {
			return v
		}
	}
	return nil
}

// decodeAll is the strict counterpart of DataAs used by the sum type: any
// invalid record fails the whole decode.
func decodeAll[T any](e *Envelope) ([]T, error) {
	raws := e.records()
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &DecodeError{Reason: ReasonSchema, Kind: e.Kind, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		out = append(out, v)
	}
	return out, nil
}
