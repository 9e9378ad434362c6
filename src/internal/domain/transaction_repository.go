package domain

import (
	"context"
	"time"
)

type TransactionStore interface {
	Create(ctx context.Context, transaction Transaction) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	ListByAccount(ctx context.Context, accountID string) ([]Transaction, error)
	ListByState(ctx context.Context, state TransactionState, olderThan time.Time, limit int) ([]Transaction, error)

	// Transition moves a transaction from one state to another only if it is
	// currently in from. It returns false when the stored state differs and
	// ErrInvalidTransition when from -> to is not a lifecycle edge.
	Transition(ctx context.Context, id string, from TransactionState, to TransactionState, reason string) (bool, error)
}
