// Package model defines the ACP protocol types shared across the engine: job
// phases, memos, jobs and agents.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Phase is a job lifecycle stage. Values match the on-chain enum.
type Phase int

const (
	PhaseRequest Phase = iota
	PhaseNegotiation
	PhaseTransaction
	PhaseEvaluation
	PhaseCompleted
	PhaseRejected
	PhaseExpired
)

var phaseNames = [...]string{"REQUEST", "NEGOTIATION", "TRANSACTION", "EVALUATION", "COMPLETED", "REJECTED", "EXPIRED"}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool { return p >= PhaseRequest && p <= PhaseExpired }

func (p Phase) String() string {
	if !p.Valid() {
		return "Phase(" + strconv.Itoa(int(p)) + ")"
	}
	return phaseNames[p]
}

// Terminal reports whether no further memos are accepted in p.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseRejected || p == PhaseExpired
}

// CanAdvanceTo reports whether next is reachable from p along the phase graph.
// The happy path only moves forward; REJECTED and EXPIRED are reachable from
// any non-terminal phase.
func (p Phase) CanAdvanceTo(next Phase) bool {
	if !p.Valid() || !next.Valid() || p.Terminal() {
		return false
	}
	if next == PhaseRejected || next == PhaseExpired {
		return true
	}
	return next > p && next <= PhaseCompleted
}

// UnmarshalJSON accepts the numeric code as a number or a numeric string.
func (p *Phase) UnmarshalJSON(data []byte) error {
	v, err := decodeCode(data)
	if err != nil {
		return fmt.Errorf("phase: %w", err)
	}
	*p = Phase(v)
	if !p.Valid() {
		return fmt.Errorf("phase: unknown code %d", v)
	}
	return nil
}

// MemoType is the kind of memo, matching the on-chain enum.
type MemoType int

const (
	MemoTypeMessage MemoType = iota
	MemoTypeContextURL
	MemoTypeImageURL
	MemoTypeVoiceURL
	MemoTypeObjectURL
	MemoTypeTxHash
	MemoTypePayableRequest
	MemoTypePayableTransfer
	MemoTypePayableTransferEscrow
)

var memoTypeNames = [...]string{
	"MESSAGE", "CONTEXT_URL", "IMAGE_URL", "VOICE_URL", "OBJECT_URL", "TXHASH",
	"PAYABLE_REQUEST", "PAYABLE_TRANSFER", "PAYABLE_TRANSFER_ESCROW",
}

// Valid reports whether t is a known memo type.
func (t MemoType) Valid() bool { return t >= MemoTypeMessage && t <= MemoTypePayableTransferEscrow }

func (t MemoType) String() string {
	if !t.Valid() {
		return "MemoType(" + strconv.Itoa(int(t)) + ")"
	}
	return memoTypeNames[t]
}

// Payable reports whether the memo moves funds.
func (t MemoType) Payable() bool {
	return t == MemoTypePayableRequest || t == MemoTypePayableTransfer || t == MemoTypePayableTransferEscrow
}

// UnmarshalJSON accepts the numeric code as a number or a numeric string.
func (t *MemoType) UnmarshalJSON(data []byte) error {
	v, err := decodeCode(data)
	if err != nil {
		return fmt.Errorf("memo type: %w", err)
	}
	*t = MemoType(v)
	if !t.Valid() {
		return fmt.Errorf("memo type: unknown code %d", v)
	}
	return nil
}

// MemoStatus is the approval state of a memo.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type MemoStatus string

const (
	MemoStatusPending  MemoStatus = "PENDING"
	MemoStatusApproved MemoStatus = "APPROVED"
	MemoStatusRejected MemoStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s MemoStatus) Valid() bool {
	return s == MemoStatusPending || s == MemoStatusApproved || s == MemoStatusRejected
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *MemoStatus) UnmarshalText(text []byte) error {
	v := MemoStatus(strings.ToUpper(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid memo status: %q", string(text))
	}
	*s = v
	return nil
}

// FeeType controls how a payable memo's fee is charged.
type FeeType int

const (
	FeeTypeNone FeeType = iota
	FeeTypeImmediate
	FeeTypeDeferred
)

// Valid reports whether f is a known fee type.
func (f FeeType) Valid() bool { return f >= FeeTypeNone && f <= FeeTypeDeferred }

func (f FeeType) String() string {
	switch f {
	case FeeTypeNone:
		return "NO_FEE"
	case FeeTypeImmediate:
		return "IMMEDIATE_FEE"
	case FeeTypeDeferred:
		return "DEFERRED_FEE"
	default:
		return "FeeType(" + strconv.Itoa(int(f)) + ")"
	}
}

func decodeCode(data []byte) (int, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		return strconv.Atoi(strings.TrimSpace(s))
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, err
	}
	return n, nil
}
