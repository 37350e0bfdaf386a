package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
)

// Job is a read-mostly snapshot of one escrow-backed unit of work. Actions
// never mutate a Job; state changes show up in a freshly fetched snapshot.
type Job struct {
	ID               int64          `json:"id"`
	ProviderAddress  string         `json:"providerAddress"`
	ClientAddress    string         `json:"clientAddress"`
	EvaluatorAddress string         `json:"evaluatorAddress"`
	Price            float64        `json:"price"`
	Phase            Phase          `json:"phase"`
	Context          map[string]any `json:"context,omitempty"`
	Memos            []*Memo        `json:"memos"`
	MemoToSign       *int64         `json:"memoToSign,omitempty"`
}

// LatestMemo returns the newest memo, or nil when the job has none.
func (j *Job) LatestMemo() *Memo {
	if j == nil || len(j.Memos) == 0 {
		return nil
	}
	return j.Memos[len(j.Memos)-1]
}

// MemoByID returns the memo with the given id, or nil.
func (j *Job) MemoByID(id int64) *Memo {
	if j == nil {
		return nil
	}
	for _, m := range j.Memos {
		if m != nil && m.ID == id {
			return m
		}
	}
	return nil
}

// FirstMemoWithNextPhase returns the oldest memo that advances into phase.
func (j *Job) FirstMemoWithNextPhase(phase Phase) *Memo {
	if j == nil {
		return nil
	}
	for _, m := range j.Memos {
		if m != nil && m.NextPhase == phase {
			return m
		}
	}
	return nil
}

// PendingMemo returns the memo referenced by MemoToSign, if any.
func (j *Job) PendingMemo() *Memo {
	if j == nil || j.MemoToSign == nil {
		return nil
	}
	return j.MemoByID(*j.MemoToSign)
}

// negotiationTerms parses the first NEGOTIATION-bound memo. ok is false when
// the memo is missing or empty; terms is nil when the content is not JSON.
func (j *Job) negotiationTerms() (memo *Memo, terms *payload.NegotiationTerms, ok bool) {
	memo = j.FirstMemoWithNextPhase(PhaseNegotiation)
	if memo == nil || memo.Content == "" {
		return nil, nil, false
	}
	var t payload.NegotiationTerms
	if err := json.Unmarshal([]byte(memo.Content), &t); err != nil {
		return memo, nil, true
	}
	return memo, &t, true
}

// ServiceRequirement returns the buyer's requirement from the negotiation
// memo: a string, a decoded object, or nil. Terms without a requirement are
// returned whole as *payload.NegotiationTerms.
func (j *Job) ServiceRequirement() any {
	_, terms, ok := j.negotiationTerms()
	if !ok || terms == nil {
		return nil
	}
	switch v := terms.ServiceRequirement.(type) {
	case nil:
		return terms
	case string:
		if v == "" {
			return terms
		}
	case map[string]any:
		if len(v) == 0 {
			return terms
		}
	}
	return terms.ServiceRequirement
}

// ServiceName returns the offering name from the negotiation memo. Plain-text
// negotiation content is returned as-is.
func (j *Job) ServiceName() string {
	memo, terms, ok := j.negotiationTerms()
	if !ok {
		return ""
	}
	if terms == nil {
		return memo.Content
	}
	return terms.Name
}

// Deliverable returns the content of the COMPLETED-bound memo.
func (j *Job) Deliverable() (string, bool) {
	memo := j.FirstMemoWithNextPhase(PhaseCompleted)
	if memo == nil {
		return "", false
	}
	return memo.Content, true
}

// IsParty reports whether address is the job's client, provider or evaluator.
func (j *Job) IsParty(address string) bool {
	return strings.EqualFold(address, j.ClientAddress) ||
		strings.EqualFold(address, j.ProviderAddress) ||
		strings.EqualFold(address, j.EvaluatorAddress)
}

type jobWire struct {
	ID               json.Number     `json:"id"`
	ProviderAddress  string          `json:"providerAddress"`
	ClientAddress    string          `json:"clientAddress"`
	EvaluatorAddress string          `json:"evaluatorAddress"`
	Price            json.RawMessage `json:"price"`
	Phase            Phase           `json:"phase"`
	Context          json.RawMessage `json:"context"`
	Memos            []*Memo         `json:"memos"`
	MemoToSign       json.RawMessage `json:"memoToSign"`
}

// UnmarshalJSON decodes the inbound event / REST job shape. Context may be an
// object or a JSON-encoded string; undecodable context becomes nil.
func (j *Job) UnmarshalJSON(data []byte) error {
	var w jobWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := parseInt64(string(w.ID))
	if err != nil {
		return fmt.Errorf("job id: %w", err)
	}
	price, err := parsePrice(w.Price)
	if err != nil {
		return fmt.Errorf("job %d price: %w", id, err)
	}
	var memoToSign *int64
	if raw := bytes.TrimSpace(w.MemoToSign); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		v, perr := parseInt64(string(raw))
		if perr != nil {
			return fmt.Errorf("job %d memoToSign: %w", id, perr)
		}
		memoToSign = &v
	}
	*j = Job{
		ID:               id,
		ProviderAddress:  w.ProviderAddress,
		ClientAddress:    w.ClientAddress,
		EvaluatorAddress: w.EvaluatorAddress,
		Price:            price,
		Phase:            w.Phase,
		Context:          parseContext(w.Context),
		Memos:            w.Memos,
		MemoToSign:       memoToSign,
	}
	return nil
}

func parsePrice(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	s := strings.Trim(string(raw), `"`)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseContext(raw json.RawMessage) map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		raw = []byte(s)
	}
	var ctx map[string]any
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return nil
	}
	return ctx
}
