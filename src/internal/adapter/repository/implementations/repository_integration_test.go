//go:build integration

package implementations

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := RunMigrations(ctx, db, filepath.Join("..", "..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.Len(t, applied, 3)

	again, err := RunMigrations(ctx, db, filepath.Join("..", "..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.Empty(t, again)

	return db
}

func TestPostgresRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	accounts := NewAccountRepository(db)
	transactions := NewTransactionRepository(db)

	sender, err := accounts.Create(ctx, domain.Account{Balance: decimal.NewFromInt(100)})
	require.NoError(t, err)
	receiver, err := accounts.Create(ctx, domain.Account{Balance: decimal.NewFromInt(50)})
	require.NoError(t, err)

	t.Run("missing account", func(t *testing.T) {
		_, err := accounts.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("conditional write commits and bumps version", func(t *testing.T) {
		session, err := accounts.Begin(ctx)
		require.NoError(t, err)
		defer session.Rollback()

		locked, err := session.Read(ctx, sender.ID, domain.LockExclusive)
		require.NoError(t, err)

		locked.Balance = locked.Balance.Sub(decimal.NewFromInt(10))
		require.NoError(t, session.ConditionalWrite(ctx, locked, locked.Version))
		assert.ErrorIs(t, session.ConditionalWrite(ctx, locked, locked.Version), domain.ErrVersionConflict)
		require.NoError(t, session.Commit())

		got, err := accounts.Get(ctx, sender.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(90)))
		assert.Equal(t, sender.Version+1, got.Version)
	})

	t.Run("negative balance rejected by constraint", func(t *testing.T) {
		session, err := accounts.Begin(ctx)
		require.NoError(t, err)
		defer session.Rollback()

		// bypass the Go-side guard to exercise the CHECK constraint
		raw := session.(*accountSession)
		_, err = raw.tx.ExecContext(ctx, `UPDATE accounts SET balance = -1 WHERE id = $1`, receiver.ID)
		assert.ErrorIs(t, translatePQError(err), domain.ErrNegativeBalance)
	})

	t.Run("exclusive lock blocks a second session", func(t *testing.T) {
		holder, err := accounts.Begin(ctx)
		require.NoError(t, err)
		_, err = holder.Read(ctx, receiver.ID, domain.LockExclusive)
		require.NoError(t, err)

		var wg sync.WaitGroup
		acquired := make(chan time.Time, 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			waiter, err := accounts.Begin(ctx)
			if err != nil {
				return
			}
			defer waiter.Rollback()
			if _, err := waiter.Read(ctx, receiver.ID, domain.LockExclusive); err == nil {
				acquired <- time.Now()
			}
		}()

		time.Sleep(100 * time.Millisecond)
		released := time.Now()
		require.NoError(t, holder.Rollback())
		wg.Wait()

		select {
		case at := <-acquired:
			assert.False(t, at.Before(released))
		default:
			t.Fatal("waiter never acquired the lock")
		}
	})

	t.Run("transaction lifecycle", func(t *testing.T) {
		created, err := transactions.Create(ctx, domain.Transaction{
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Amount:     decimal.RequireFromString("12.50"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatePending, created.State)

		ok, err := transactions.Transition(ctx, created.ID, domain.TransactionStatePending, domain.TransactionStateInProgress, "")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = transactions.Transition(ctx, created.ID, domain.TransactionStatePending, domain.TransactionStateInProgress, "")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = transactions.Transition(ctx, "missing", domain.TransactionStatePending, domain.TransactionStateInProgress, "")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		ok, err = transactions.Transition(ctx, created.ID, domain.TransactionStateInProgress, domain.TransactionStateSucceeded, "")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := transactions.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStateSucceeded, got.State)
		assert.Equal(t, int64(3), got.Version)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.5")))

		listed, err := transactions.ListByAccount(ctx, receiver.ID)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("list pending older than", func(t *testing.T) {
		pending, err := transactions.Create(ctx, domain.Transaction{
			SenderID:   receiver.ID,
			ReceiverID: sender.ID,
			Amount:     decimal.NewFromInt(1),
		})
		require.NoError(t, err)

		got, err := transactions.ListByState(ctx, domain.TransactionStatePending, time.Now().Add(time.Minute), 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, pending.ID, got[0].ID)
	})

	t.Run("unknown party rejected", func(t *testing.T) {
		_, err := transactions.Create(ctx, domain.Transaction{
			SenderID:   sender.ID,
			ReceiverID: "ghost",
			Amount:     decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("database rejects illegal state change", func(t *testing.T) {
		created, err := transactions.Create(ctx, domain.Transaction{
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Amount:     decimal.NewFromInt(2),
		})
		require.NoError(t, err)

		_, err = db.ExecContext(ctx, `UPDATE transactions SET state = 'SUCCEEDED' WHERE id = $1`, created.ID)
		assert.ErrorIs(t, translatePQError(err), domain.ErrInvalidTransition)

		got, err := transactions.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatePending, got.State)
	})

	t.Run("amounts keep full precision", func(t *testing.T) {
		for _, amount := range []string{"0.000000001", "0.123456789", "12345678901234567890.000000000001"} {
			created, err := transactions.Create(ctx, domain.Transaction{
				SenderID:   sender.ID,
				ReceiverID: receiver.ID,
				Amount:     decimal.RequireFromString(amount),
			})
			require.NoError(t, err)

			got, err := transactions.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.True(t, got.Amount.Equal(decimal.RequireFromString(amount)), "stored %s as %s", amount, got.Amount)
		}
	})

	t.Run("same parties rejected as validation", func(t *testing.T) {
		_, err := transactions.Create(ctx, domain.Transaction{
			SenderID:   sender.ID,
			ReceiverID: sender.ID,
			Amount:     decimal.NewFromInt(1),
		})

		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}
