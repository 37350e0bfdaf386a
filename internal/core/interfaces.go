package core

import (
	"context"
	"strings"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
)

// This file contains the ports the engine depends on. Adapters in
// internal/adapters and internal/data implement them; services only ever see
// these interfaces.

// StatusConfirmed is the CallStatus code reported once a call is mined.
const StatusConfirmed = 200

// Call is one abstract contract invocation. The relay owns ABI encoding and
// signing; the engine only names the method and its arguments.
type Call struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
	Target string `json:"to"`
}

// Handle identifies a submitted call for later confirmation.
type Handle string

// Log is one event log emitted by a confirmed call.
type Log struct {
	Address string `json:"address"`
	Data    string `json:"data"`
}

// Receipt is the on-chain receipt of a confirmed call.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Logs            []Log  `json:"logs"`
}

// CallStatus is the relay's view of a submitted call.
type CallStatus struct {
	Status   int       `json:"status"`
	Receipts []Receipt `json:"receipts"`
}

// Confirmed reports whether the call succeeded.
func (s *CallStatus) Confirmed() bool { return s != nil && s.Status == StatusConfirmed }

// TxHash returns the first receipt's transaction hash, or "".
func (s *CallStatus) TxHash() string {
	if s == nil || len(s.Receipts) == 0 {
		return ""
	}
	return s.Receipts[0].TransactionHash
}

// LogsFrom returns every log emitted by address (case-insensitive) across
// all receipts.
func (s *CallStatus) LogsFrom(address string) []Log {
	if s == nil {
		return nil
	}
	var out []Log
	for _, r := range s.Receipts {
		for _, l := range r.Logs {
			if strings.EqualFold(l.Address, address) {
				out = append(out, l)
			}
		}
	}
	return out
}

// ChainRelay submits calls to the chain and reports their status.
type ChainRelay interface {
	Submit(ctx context.Context, call Call) (Handle, error)
	Confirm(ctx context.Context, handle Handle) (*CallStatus, error)
}

// InitiateNotification is posted to the ACP API after a job is created on
// chain so the directory can index it.
type InitiateNotification struct {
	JobID            int64    `json:"jobId"`
	ClientAddress    string   `json:"clientAddress"`
	ProviderAddress  string   `json:"providerAddress"`
	Description      any      `json:"description"`
	ExpiredAt        string   `json:"expiredAt"`
	EvaluatorAddress string   `json:"evaluatorAddress"`
	Price            *float64 `json:"price,omitempty"`
}

// ACPAPI is the REST collaborator serving job snapshots and the agent
// directory. Every read returns a fresh snapshot.
type ACPAPI interface {
	ListJobs(ctx context.Context, kind model.JobListKind, page model.Pagination) ([]*model.Job, error)
	GetJob(ctx context.Context, jobID int64) (*model.Job, error)
	GetMemo(ctx context.Context, jobID, memoID int64) (*model.Memo, error)
	SearchAgents(ctx context.Context, search model.AgentSearch) ([]*model.Agent, error)
	GetAgent(ctx context.Context, wallet string) (*model.Agent, error)
	NotifyJobInitiated(ctx context.Context, n InitiateNotification) error
}

// TransactionJournal records every submit/confirm attempt for operators.
// Nothing in the engine reads the journal back to make decisions.
type TransactionJournal interface {
	Record(ctx context.Context, attempt *model.TxAttempt) error
	ListByCall(ctx context.Context, callID string) ([]*model.TxAttempt, error)
	Recent(ctx context.Context, limit int) ([]*model.TxAttempt, error)
}
