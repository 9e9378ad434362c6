package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionState string

const (
	TransactionStatePending    TransactionState = "PENDING"
	TransactionStateInProgress TransactionState = "IN_PROGRESS"
	TransactionStateSucceeded  TransactionState = "SUCCEEDED"
	TransactionStateFailed     TransactionState = "FAILED"
)

var transitions = map[TransactionState][]TransactionState{
	TransactionStatePending:    {TransactionStateInProgress},
	TransactionStateInProgress: {TransactionStateSucceeded, TransactionStateFailed},
}

func (s TransactionState) Valid() bool {
	switch s {
	case TransactionStatePending, TransactionStateInProgress, TransactionStateSucceeded, TransactionStateFailed:
		return true
	}
	return false
}

func (s TransactionState) IsTerminal() bool {
	return s == TransactionStateSucceeded || s == TransactionStateFailed
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Terminal states have no outgoing edges.
func CanTransition(from, to TransactionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	ReasonInsufficientBalance = "insufficient balance"
	ReasonRetryBudgetExceeded = "lock contention exceeded retry budget"
	ReasonAccountNotFound     = "account not found"
	ReasonExecutionCancelled  = "execution cancelled"
)

type Transaction struct {
	ID            string
	SenderID      string
	ReceiverID    string
	Amount        decimal.Decimal
	State         TransactionState
	FailureReason string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
