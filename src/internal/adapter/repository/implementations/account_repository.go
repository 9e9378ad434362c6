package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/google/uuid"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	account.ID = strings.TrimSpace(account.ID)
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Balance.IsNegative() {
		return domain.Account{}, fmt.Errorf("create account: %w", domain.ErrNegativeBalance)
	}

	logger.Info("account repository create", logger.Fields{
		"accountId": account.ID,
		"balance":   account.Balance.String(),
	})

	const query = `
INSERT INTO accounts (id, balance)
VALUES ($1, $2)
RETURNING version, created_at, updated_at`

	if err := r.db.QueryRowContext(ctx, query, account.ID, account.Balance).Scan(
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		logger.Error("account repository create failed", err, logger.Fields{
			"accountId": account.ID,
		})
		if isUniqueViolation(err) {
			return domain.Account{}, fmt.Errorf("create account: id %s already exists", account.ID)
		}
		return domain.Account{}, fmt.Errorf("create account: %w", translatePQError(err))
	}

	return account, nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (domain.Account, error) {
	return getAccount(ctx, r.db, strings.TrimSpace(id), domain.LockNone)
}

func (r *AccountRepository) Begin(ctx context.Context) (domain.AccountSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin account session: %w", err)
	}
	return &accountSession{tx: tx}, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q queryer, id string, mode domain.LockMode) (domain.Account, error) {
	query := `
SELECT id, balance, version, created_at, updated_at
FROM accounts
WHERE id = $1`
	if mode == domain.LockExclusive {
		query += `
FOR UPDATE`
	}

	var account domain.Account
	if err := q.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Balance,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		logger.Error("account repository get failed", err, logger.Fields{
			"accountId": id,
			"lock":      mode.String(),
		})
		return domain.Account{}, fmt.Errorf("get account %s: %w", id, translatePQError(err))
	}

	return account, nil
}

// accountSession wraps one database transaction. Row locks taken with
// SELECT ... FOR UPDATE live until the transaction ends.
type accountSession struct {
	tx *sql.Tx
}

func (s *accountSession) Read(ctx context.Context, id string, mode domain.LockMode) (domain.Account, error) {
	return getAccount(ctx, s.tx, strings.TrimSpace(id), mode)
}

func (s *accountSession) ConditionalWrite(ctx context.Context, account domain.Account, expectedVersion int64) error {
	if account.Balance.IsNegative() {
		return domain.ErrNegativeBalance
	}

	const query = `
UPDATE accounts
SET balance = $2,
    version = version + 1,
    updated_at = NOW()
WHERE id = $1
  AND version = $3`

	result, err := s.tx.ExecContext(ctx, query, account.ID, account.Balance, expectedVersion)
	if err != nil {
		logger.Error("account repository conditional write failed", err, logger.Fields{
			"accountId":       account.ID,
			"expectedVersion": expectedVersion,
		})
		return fmt.Errorf("write account %s: %w", account.ID, translatePQError(err))
	}

	return execRequiredRows(result, domain.ErrVersionConflict)
}

func (s *accountSession) Commit() error {
	if err := s.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return err
		}
		return fmt.Errorf("commit account session: %w", translatePQError(err))
	}
	return nil
}

func (s *accountSession) Rollback() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback account session: %w", err)
	}
	return nil
}

func execRequiredRows(result sql.Result, whenNone error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return whenNone
	}
	return nil
}
