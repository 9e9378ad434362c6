package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/google/uuid"
)

type TransactionStore struct {
	mu    sync.RWMutex
	rows  map[string]domain.Transaction
	clock func() time.Time
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		rows:  make(map[string]domain.Transaction),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (s *TransactionStore) Create(_ context.Context, transaction domain.Transaction) (domain.Transaction, error) {
	if transaction.State == "" {
		transaction.State = domain.TransactionStatePending
	}
	if transaction.State != domain.TransactionStatePending {
		return domain.Transaction{}, fmt.Errorf("create transaction in state %s: %w", transaction.State, domain.ErrInvalidTransition)
	}
	if !transaction.Amount.IsPositive() {
		return domain.Transaction{}, fmt.Errorf("create transaction: %w", domain.NewValidationError("amount must be greater than zero"))
	}
	if transaction.SenderID == transaction.ReceiverID {
		return domain.Transaction{}, fmt.Errorf("create transaction: %w", domain.NewValidationError("senderId and receiverId cannot be the same"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	transaction.ID = uuid.NewString()
	now := s.clock()
	transaction.Version = 1
	transaction.CreatedAt = now
	transaction.UpdatedAt = now
	s.rows[transaction.ID] = transaction

	return transaction, nil
}

func (s *TransactionStore) Get(_ context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transaction, ok := s.rows[strings.TrimSpace(id)]
	if !ok {
		return domain.Transaction{}, domain.ErrRecordNotFound
	}
	return transaction, nil
}

func (s *TransactionStore) ListByAccount(_ context.Context, accountID string) ([]domain.Transaction, error) {
	accountID = strings.TrimSpace(accountID)

	s.mu.RLock()
	out := make([]domain.Transaction, 0)
	for _, transaction := range s.rows {
		if transaction.SenderID == accountID || transaction.ReceiverID == accountID {
			out = append(out, transaction)
		}
	}
	s.mu.RUnlock()

	sortByCreated(out)
	return out, nil
}

func (s *TransactionStore) ListByState(_ context.Context, state domain.TransactionState, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	out := make([]domain.Transaction, 0)
	for _, transaction := range s.rows {
		if transaction.State == state && transaction.UpdatedAt.Before(olderThan) {
			out = append(out, transaction)
		}
	}
	s.mu.RUnlock()

	sortByCreated(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TransactionStore) Transition(_ context.Context, id string, from domain.TransactionState, to domain.TransactionState, reason string) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("%s -> %s: %w", from, to, domain.ErrInvalidTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	transaction, ok := s.rows[strings.TrimSpace(id)]
	if !ok {
		return false, domain.ErrRecordNotFound
	}
	if transaction.State != from {
		return false, nil
	}

	transaction.State = to
	transaction.FailureReason = reason
	transaction.Version++
	transaction.UpdatedAt = s.clock()
	s.rows[transaction.ID] = transaction

	return true, nil
}

func sortByCreated(transactions []domain.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		if transactions[i].CreatedAt.Equal(transactions[j].CreatedAt) {
			return transactions[i].ID < transactions[j].ID
		}
		return transactions[i].CreatedAt.Before(transactions[j].CreatedAt)
	})
}
