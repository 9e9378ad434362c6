package service_interfaces

import (
	"context"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
)

type TransactionService interface {
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)
	ListAccountTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
	Requeue(ctx context.Context, id string) (domain.Transaction, error)
}
