package txpipeline

import (
	"math/big"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
)

// Contract method names understood by the relay.
const (
	MethodCreateJob         = "createJob"
	MethodSetBudget         = "setBudgetWithPaymentToken"
	MethodCreateMemo        = "createMemo"
	MethodCreatePayableMemo = "createPayableMemo"
	MethodSignMemo          = "signMemo"
	MethodApprove           = "approve"
)

// Calls builds the abstract contract calls for one escrow deployment.
// Base-unit amounts travel as decimal strings.
type Calls struct {
	Escrow       string
	PaymentToken string
}

// CreateJob opens a job with provider and evaluator, expiring at expireAt
// (unix seconds).
func (c Calls) CreateJob(provider, evaluator string, expireAt int64) core.Call {
	return core.Call{Method: MethodCreateJob, Target: c.Escrow, Args: []any{provider, evaluator, expireAt}}
}

// SetBudget sets the job budget in payment-token base units.
func (c Calls) SetBudget(jobID int64, amount *big.Int) core.Call {
	return core.Call{Method: MethodSetBudget, Target: c.Escrow, Args: []any{jobID, amountString(amount), c.PaymentToken}}
}

// CreateMemo attaches a memo that advances the job into next.
func (c Calls) CreateMemo(jobID int64, content string, typ model.MemoType, secured bool, next model.Phase) core.Call {
	return core.Call{
		Method: MethodCreateMemo,
		Target: c.Escrow,
		Args:   []any{jobID, content, int(typ), secured, int(next)},
	}
}

// PayableMemo carries the arguments of createPayableMemo.
type PayableMemo struct {
	JobID     int64
	Content   string
	Amount    *big.Int
	Recipient string
	Fee       *big.Int
	FeeType   model.FeeType
	Type      model.MemoType
	NextPhase model.Phase
	ExpiredAt int64
}

// CreatePayableMemo attaches a memo that moves funds once approved.
func (c Calls) CreatePayableMemo(m PayableMemo) core.Call {
	return core.Call{
		Method: MethodCreatePayableMemo,
		Target: c.Escrow,
		Args: []any{
			m.JobID, m.Content, c.PaymentToken, amountString(m.Amount), m.Recipient,
			amountString(m.Fee), int(m.FeeType), int(m.Type), int(m.NextPhase), m.ExpiredAt,
		},
	}
}

// SignMemo approves or rejects a memo.
func (c Calls) SignMemo(memoID int64, approved bool, reason string) core.Call {
	return core.Call{Method: MethodSignMemo, Target: c.Escrow, Args: []any{memoID, approved, reason}}
}

// Approve lets the escrow contract pull amount from the payment token.
func (c Calls) Approve(amount *big.Int) core.Call {
	return core.Call{Method: MethodApprove, Target: c.PaymentToken, Args: []any{c.Escrow, amountString(amount)}}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
