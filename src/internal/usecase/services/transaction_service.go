package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
)

type TransactionService struct {
	accounts     domain.AccountStore
	transactions domain.TransactionStore
	scheduler    *Scheduler
}

func NewTransactionService(accounts domain.AccountStore, transactions domain.TransactionStore, scheduler *Scheduler) *TransactionService {
	return &TransactionService{
		accounts:     accounts,
		transactions: transactions,
		scheduler:    scheduler,
	}
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Transaction{}, domain.NewValidationError("transaction id is required")
	}

	transaction, err := s.transactions.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return transaction, nil
}

// ListAccountTransactions returns every transaction the account sent or
// received, oldest first.
func (s *TransactionService) ListAccountTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.NewValidationError("account id is required")
	}

	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, &domain.AccountNotFoundError{AccountID: accountID}
		}
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}

	transactions, err := s.transactions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", accountID, err)
	}
	return transactions, nil
}

// Requeue hands a still-PENDING transaction back to the executor.
func (s *TransactionService) Requeue(ctx context.Context, id string) (domain.Transaction, error) {
	transaction, err := s.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if transaction.State != domain.TransactionStatePending {
		return transaction, fmt.Errorf("requeue transaction %s in state %s: %w", transaction.ID, transaction.State, domain.ErrNotPending)
	}

	if err := s.scheduler.Schedule(ctx, transaction.ID, SourceRequeue); err != nil {
		return transaction, err
	}

	logger.Info("transaction service requeued", logger.Fields{
		"transactionId": transaction.ID,
	})
	return transaction, nil
}
