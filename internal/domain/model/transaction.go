package model

import "time"

// TxResult is the outcome of one submit/confirm attempt.
type TxResult string

const (
	TxResultConfirmed TxResult = "confirmed"
	// TxResultRejected means the relay answered with a non-success status.
	TxResultRejected TxResult = "rejected"
	// TxResultError means submit or confirm failed at the transport.
	TxResultError TxResult = "error"
)

// TxAttempt is one journal row. CallID groups the attempts of one call.
type TxAttempt struct {
	ID        string    `json:"id"         db:"id"`
	CallID    string    `json:"call_id"    db:"call_id"`
	Method    string    `json:"method"     db:"method"`
	Target    string    `json:"target"     db:"target"`
	Handle    string    `json:"handle,omitempty" db:"handle"`
	Attempt   int       `json:"attempt"    db:"attempt"`
	Status    int       `json:"status"     db:"status"`
	Result    TxResult  `json:"result"     db:"result"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
