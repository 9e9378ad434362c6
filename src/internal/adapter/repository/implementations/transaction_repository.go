package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/google/uuid"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, sender_id, receiver_id, amount, state, failure_reason, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var transaction domain.Transaction
	err := row.Scan(
		&transaction.ID,
		&transaction.SenderID,
		&transaction.ReceiverID,
		&transaction.Amount,
		&transaction.State,
		&transaction.FailureReason,
		&transaction.Version,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
	)
	return transaction, err
}

func (r *TransactionRepository) Create(ctx context.Context, transaction domain.Transaction) (domain.Transaction, error) {
	if transaction.State == "" {
		transaction.State = domain.TransactionStatePending
	}
	if transaction.State != domain.TransactionStatePending {
		return domain.Transaction{}, fmt.Errorf("create transaction in state %s: %w", transaction.State, domain.ErrInvalidTransition)
	}
	transaction.ID = uuid.NewString()

	logger.Info("transaction repository create", logger.Fields{
		"transactionId": transaction.ID,
		"senderId":      transaction.SenderID,
		"receiverId":    transaction.ReceiverID,
		"amount":        transaction.Amount.String(),
	})

	const query = `
INSERT INTO transactions (id, sender_id, receiver_id, amount, state)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + transactionColumns

	created, err := scanTransaction(r.db.QueryRowContext(
		ctx,
		query,
		transaction.ID,
		transaction.SenderID,
		transaction.ReceiverID,
		transaction.Amount,
		transaction.State,
	))
	if err != nil {
		logger.Error("transaction repository create failed", err, logger.Fields{
			"transactionId": transaction.ID,
		})
		return domain.Transaction{}, fmt.Errorf("create transaction: %w", translatePQError(err))
	}

	return created, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	id = strings.TrimSpace(id)

	query := `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1`

	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.ErrRecordNotFound
		}
		logger.Error("transaction repository get failed", err, logger.Fields{
			"transactionId": id,
		})
		return domain.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}

	return transaction, nil
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	query := `
SELECT ` + transactionColumns + `
FROM transactions
WHERE sender_id = $1 OR receiver_id = $1
ORDER BY created_at, id`

	return r.list(ctx, "list transactions by account", query, strings.TrimSpace(accountID))
}

func (r *TransactionRepository) ListByState(ctx context.Context, state domain.TransactionState, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	query := `
SELECT ` + transactionColumns + `
FROM transactions
WHERE state = $1
  AND updated_at < $2
ORDER BY created_at, id
LIMIT NULLIF($3, 0)`

	return r.list(ctx, "list transactions by state", query, state, olderThan, limit)
}

func (r *TransactionRepository) list(ctx context.Context, op string, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("transaction repository "+op+" failed", err, nil)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}

	return out, nil
}

func (r *TransactionRepository) Transition(ctx context.Context, id string, from domain.TransactionState, to domain.TransactionState, reason string) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("%s -> %s: %w", from, to, domain.ErrInvalidTransition)
	}
	id = strings.TrimSpace(id)

	const query = `
UPDATE transactions
SET state = $3,
    failure_reason = $4,
    version = version + 1,
    updated_at = NOW()
WHERE id = $1
  AND state = $2`

	result, err := r.db.ExecContext(ctx, query, id, from, to, reason)
	if err != nil {
		logger.Error("transaction repository transition failed", err, logger.Fields{
			"transactionId": id,
			"from":          from,
			"to":            to,
		})
		return false, fmt.Errorf("transition transaction %s: %w", id, translatePQError(err))
	}

	err = execRequiredRows(result, domain.ErrRecordNotFound)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return false, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check transaction %s: %w", id, err)
	}
	if !exists {
		return false, domain.ErrRecordNotFound
	}
	return false, nil
}
