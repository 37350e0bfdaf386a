package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
)

// Memo is one signed message attached to a job. The payload envelope is
// decoded once, when the memo is constructed, and never changes afterwards.
type Memo struct {
	ID           int64      `json:"id"`
	Type         MemoType   `json:"memoType"`
	Content      string     `json:"content"`
	NextPhase    Phase      `json:"nextPhase"`
	Status       MemoStatus `json:"status"`
	SignedReason *string    `json:"signedReason,omitempty"`
	Expiry       *time.Time `json:"-"`

	envelope  *payload.Envelope
	decodeErr error
}

// NewMemo builds a memo and decodes its content.
func NewMemo(id int64, typ MemoType, content string, next Phase, status MemoStatus) *Memo {
	m := &Memo{
		ID:        id,
		Type:      typ,
		Content:   content,
		NextPhase: next,
		Status:    status,
	}
	m.decode()
	return m
}

func (m *Memo) decode() {
	m.envelope, m.decodeErr = payload.Decode(m.Content)
}

// Envelope returns the decoded payload envelope. The error is
// payload.ErrNoPayload for plain content and a *payload.DecodeError for
// content that is a broken envelope.
func (m *Memo) Envelope() (*payload.Envelope, error) {
	if m == nil {
		return nil, payload.ErrNoPayload
	}
	return m.envelope, m.decodeErr
}

// HasPayloadKind reports whether the memo carries a decodable envelope of kind.
func (m *Memo) HasPayloadKind(kind payload.Kind) bool {
	env, err := m.Envelope()
	return err == nil && env.Kind == kind
}

// IsPending reports whether the memo still awaits a signature.
func (m *Memo) IsPending() bool { return m != nil && m.Status == MemoStatusPending }

type memoWire struct {
	ID           json.Number     `json:"id"`
	Type         MemoType        `json:"memoType"`
	Content      string          `json:"content"`
	NextPhase    Phase           `json:"nextPhase"`
	Status       MemoStatus      `json:"status"`
	SignedReason *string         `json:"signedReason,omitempty"`
	Expiry       json.RawMessage `json:"expiry,omitempty"`
}

// UnmarshalJSON decodes the wire shape {id, memoType, content, nextPhase,
// status, signedReason?, expiry?}. Expiry is unix seconds as a number or a
// numeric string.
func (m *Memo) UnmarshalJSON(data []byte) error {
	var w memoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := parseInt64(string(w.ID))
	if err != nil {
		return fmt.Errorf("memo id: %w", err)
	}
	expiry, err := parseUnix(w.Expiry)
	if err != nil {
		return fmt.Errorf("memo %d expiry: %w", id, err)
	}
	*m = Memo{
		ID:           id,
		Type:         w.Type,
		Content:      w.Content,
		NextPhase:    w.NextPhase,
		Status:       w.Status,
		SignedReason: w.SignedReason,
		Expiry:       expiry,
	}
	m.decode()
	return nil
}

// MarshalJSON renders the wire shape.
func (m *Memo) MarshalJSON() ([]byte, error) {
	var expiry json.RawMessage
	if m.Expiry != nil {
		expiry = json.RawMessage(strconv.FormatInt(m.Expiry.Unix(), 10))
	}
	return json.Marshal(memoWire{
		ID:           json.Number(strconv.FormatInt(m.ID, 10)),
		Type:         m.Type,
		Content:      m.Content,
		NextPhase:    m.NextPhase,
		Status:       m.Status,
		SignedReason: m.SignedReason,
		Expiry:       expiry,
	})
}

func parseInt64(s string) (int64, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseUnix(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return nil, nil
	}
	secs, err := parseInt64(string(raw))
	if err != nil {
		return nil, err
	}
	t := time.Unix(secs, 0).UTC()
	return &t, nil
}
