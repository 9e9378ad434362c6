package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/observability"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/backoff"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/dispatch"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	accounts     *conflictingAccounts
	transactions *recordingTransactions
	sink         *recordingSink
	metrics      *observability.Metrics
	executor     *services.TransactionExecutor
}

func newFixture(t *testing.T, opts services.ExecutorOptions) *fixture {
	t.Helper()

	f := &fixture{
		accounts:     &conflictingAccounts{AccountStore: memory.NewAccountStore()},
		transactions: &recordingTransactions{TransactionStore: memory.NewTransactionStore()},
		sink:         &recordingSink{},
		metrics:      observability.NewMetrics(prometheus.NewRegistry()),
	}
	if opts.Backoff == nil {
		opts.Backoff = backoff.Noop{}
	}
	opts.Metrics = f.metrics
	f.executor = services.NewTransactionExecutor(f.accounts, f.transactions, f.sink, opts)
	return f
}

func (f *fixture) account(t *testing.T, balance string) domain.Account {
	t.Helper()
	account, err := f.accounts.Create(context.Background(), domain.Account{Balance: decimal.RequireFromString(balance)})
	require.NoError(t, err)
	return account
}

func (f *fixture) pending(t *testing.T, sender, receiver domain.Account, amount string) domain.Transaction {
	t.Helper()
	transaction, err := f.transactions.Create(context.Background(), domain.Transaction{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Amount:     decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return transaction
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	account, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func (f *fixture) state(t *testing.T, id string) domain.Transaction {
	t.Helper()
	transaction, err := f.transactions.Get(context.Background(), id)
	require.NoError(t, err)
	return transaction
}

func (f *fixture) scheduler(d dispatch.Dispatcher) *services.Scheduler {
	return services.NewScheduler(f.executor, d, f.metrics)
}

var errStorageFault = errors.New("storage unavailable")

// conflictingAccounts rejects the next conflicts conditional writes with a
// version conflict, and the next beginFaults begins or commitFaults commits
// with errStorageFault, before delegating to the real store.
type conflictingAccounts struct {
	domain.AccountStore
	conflicts    atomic.Int64
	beginFaults  atomic.Int64
	commitFaults atomic.Int64
	begins       atomic.Int64
}

func (c *conflictingAccounts) Begin(ctx context.Context) (domain.AccountSession, error) {
	c.begins.Add(1)
	if c.beginFaults.Add(-1) >= 0 {
		return nil, errStorageFault
	}
	session, err := c.AccountStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &conflictingSession{AccountSession: session, parent: c}, nil
}

type conflictingSession struct {
	domain.AccountSession
	parent *conflictingAccounts
}

func (s *conflictingSession) ConditionalWrite(ctx context.Context, account domain.Account, expectedVersion int64) error {
	if s.parent.conflicts.Add(-1) >= 0 {
		return domain.ErrVersionConflict
	}
	return s.AccountSession.ConditionalWrite(ctx, account, expectedVersion)
}

func (s *conflictingSession) Commit() error {
	if s.parent.commitFaults.Add(-1) >= 0 {
		return errStorageFault
	}
	return s.AccountSession.Commit()
}

// recordingTransactions counts terminal transitions and can be told to fail
// them.
type recordingTransactions struct {
	domain.TransactionStore
	settlements  atomic.Int64
	claims       atomic.Int64
	settleErr    error
	rejectSettle bool
}

func (r *recordingTransactions) Transition(ctx context.Context, id string, from, to domain.TransactionState, reason string) (bool, error) {
	if to.IsTerminal() {
		if r.settleErr != nil {
			return false, r.settleErr
		}
		if r.rejectSettle {
			return false, nil
		}
	}

	ok, err := r.TransactionStore.Transition(ctx, id, from, to, reason)
	if ok {
		if to.IsTerminal() {
			r.settlements.Add(1)
		} else {
			r.claims.Add(1)
		}
	}
	return ok, err
}

type recordingSink struct {
	mu        sync.Mutex
	outcomes  []domain.TransferOutcome
	err       error
	panicWith any
}

func (s *recordingSink) Notify(_ context.Context, outcome domain.TransferOutcome) error {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, outcome)
	s.mu.Unlock()

	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.err
}

func (s *recordingSink) received() []domain.TransferOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TransferOutcome(nil), s.outcomes...)
}

// stubDispatcher lets a test decide whether submission succeeds.
type stubDispatcher struct {
	submitFn func(ctx context.Context, task dispatch.Task) error
	submits  atomic.Int64
}

func (s *stubDispatcher) Submit(ctx context.Context, task dispatch.Task) error {
	s.submits.Add(1)
	if s.submitFn != nil {
		return s.submitFn(ctx, task)
	}
	task(ctx)
	return nil
}

func (s *stubDispatcher) Close(context.Context) error {
	return nil
}
