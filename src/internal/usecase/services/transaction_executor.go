package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/api-sage/ledger-transfer-engine/src/internal/observability"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/backoff"
)

const (
	DefaultMaxAttempts   = 5
	DefaultNotifyTimeout = 5 * time.Second
)

type ExecutorOptions struct {
	MaxAttempts   int
	Backoff       backoff.Policy
	NotifyTimeout time.Duration
	Metrics       *observability.Metrics
}

// TransactionExecutor moves a claimed transaction to a terminal state. It is
// safe to call Execute any number of times for the same id: only the caller
// that wins the PENDING -> IN_PROGRESS claim touches balances.
type TransactionExecutor struct {
	accounts      domain.AccountStore
	transactions  domain.TransactionStore
	sink          domain.NotificationSink
	policy        backoff.Policy
	maxAttempts   int
	notifyTimeout time.Duration
	metrics       *observability.Metrics
}

func NewTransactionExecutor(
	accounts domain.AccountStore,
	transactions domain.TransactionStore,
	sink domain.NotificationSink,
	opts ExecutorOptions,
) *TransactionExecutor {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff == nil {
		opts.Backoff = backoff.Noop{}
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}

	return &TransactionExecutor{
		accounts:      accounts,
		transactions:  transactions,
		sink:          sink,
		policy:        opts.Backoff,
		maxAttempts:   opts.MaxAttempts,
		notifyTimeout: opts.NotifyTimeout,
		metrics:       opts.Metrics,
	}
}

// Execute claims, applies, settles and notifies. The only error it returns
// for a claimed transaction is a *domain.SettlementError; lookups that fail
// before the claim are returned as-is.
func (e *TransactionExecutor) Execute(ctx context.Context, transactionID string) error {
	transaction, err := e.transactions.Get(ctx, transactionID)
	if err != nil {
		logger.Error("transaction executor lookup failed", err, logger.Fields{
			"transactionId": transactionID,
		})
		return fmt.Errorf("execute transaction %s: %w", transactionID, err)
	}
	if transaction.State != domain.TransactionStatePending {
		logger.Info("transaction executor skipped non-pending transaction", logger.Fields{
			"transactionId": transactionID,
			"state":         transaction.State,
		})
		e.metrics.RecordClaimSkipped()
		return nil
	}

	// claim and settlement must not be abandoned halfway by a cancelled caller
	durable := context.WithoutCancel(ctx)

	claimed, err := e.transactions.Transition(durable, transaction.ID, domain.TransactionStatePending, domain.TransactionStateInProgress, "")
	if err != nil {
		logger.Error("transaction executor claim failed", err, logger.Fields{
			"transactionId": transaction.ID,
		})
		return fmt.Errorf("claim transaction %s: %w", transaction.ID, err)
	}
	if !claimed {
		logger.Info("transaction executor claim lost", logger.Fields{
			"transactionId": transaction.ID,
		})
		e.metrics.RecordClaimSkipped()
		return nil
	}

	state, reason, attempts := e.apply(ctx, transaction)

	settled, err := e.transactions.Transition(durable, transaction.ID, domain.TransactionStateInProgress, state, reason)
	if err != nil || !settled {
		settleErr := &domain.SettlementError{TransactionID: transaction.ID, State: state, Err: err}
		logger.Error("transaction executor settlement failed", settleErr, logger.Fields{
			"transactionId": transaction.ID,
			"state":         state,
			"reason":        reason,
			"attempts":      attempts,
		})
		e.metrics.RecordSettlementFailure()
		return settleErr
	}

	logger.Info("transaction executor settled", logger.Fields{
		"transactionId": transaction.ID,
		"state":         state,
		"reason":        reason,
		"attempts":      attempts,
	})
	e.metrics.RecordSettled(string(state), reason, attempts)

	e.notify(durable, domain.TransferOutcome{
		TransactionID: transaction.ID,
		SenderID:      transaction.SenderID,
		ReceiverID:    transaction.ReceiverID,
		Amount:        transaction.Amount,
		State:         state,
		Reason:        reason,
	})

	return nil
}

// apply runs the locked read-modify-write until it succeeds, hits a business
// failure or runs out of attempts.
func (e *TransactionExecutor) apply(ctx context.Context, transaction domain.Transaction) (domain.TransactionState, string, int) {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := e.applyOnce(ctx, transaction)
		switch {
		case err == nil:
			return domain.TransactionStateSucceeded, "", attempt
		case errors.Is(err, domain.ErrInsufficientBalance):
			return domain.TransactionStateFailed, domain.ReasonInsufficientBalance, attempt
		case errors.Is(err, domain.ErrRecordNotFound):
			return domain.TransactionStateFailed, domain.ReasonAccountNotFound, attempt
		case errors.Is(err, domain.ErrVersionConflict):
			e.metrics.RecordVersionConflict()
		}

		logger.Warn("transaction executor apply attempt failed", logger.Fields{
			"transactionId": transaction.ID,
			"attempt":       attempt,
			"maxAttempts":   e.maxAttempts,
			"error":         err.Error(),
		})

		if attempt == e.maxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.TransactionStateFailed, domain.ReasonExecutionCancelled, attempt
		}

		e.metrics.RecordRetry()
		if err := backoff.Sleep(ctx, e.policy.Delay(attempt)); err != nil {
			return domain.TransactionStateFailed, domain.ReasonExecutionCancelled, attempt
		}
	}

	return domain.TransactionStateFailed, domain.ReasonRetryBudgetExceeded, e.maxAttempts
}

func (e *TransactionExecutor) applyOnce(ctx context.Context, transaction domain.Transaction) error {
	session, err := e.accounts.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := session.Rollback(); rbErr != nil {
			logger.Error("transaction executor rollback failed", rbErr, logger.Fields{
				"transactionId": transaction.ID,
			})
		}
	}()

	locked := make(map[string]domain.Account, 2)
	for _, id := range lockOrder(transaction.SenderID, transaction.ReceiverID) {
		account, err := session.Read(ctx, id, domain.LockExclusive)
		if err != nil {
			return fmt.Errorf("lock account %s: %w", id, err)
		}
		locked[id] = account
	}

	sender := locked[transaction.SenderID]
	receiver := locked[transaction.ReceiverID]
	if sender.Balance.LessThan(transaction.Amount) {
		return domain.ErrInsufficientBalance
	}

	debited := sender
	debited.Balance = sender.Balance.Sub(transaction.Amount)
	credited := receiver
	credited.Balance = receiver.Balance.Add(transaction.Amount)

	if err := session.ConditionalWrite(ctx, debited, sender.Version); err != nil {
		return fmt.Errorf("debit sender %s: %w", sender.ID, err)
	}
	if err := session.ConditionalWrite(ctx, credited, receiver.Version); err != nil {
		return fmt.Errorf("credit receiver %s: %w", receiver.ID, err)
	}

	return session.Commit()
}

func (e *TransactionExecutor) notify(ctx context.Context, outcome domain.TransferOutcome) {
	if e.sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("transaction executor notification panicked", fmt.Errorf("panic: %v", r), logger.Fields{
				"transactionId": outcome.TransactionID,
			})
			e.metrics.RecordNotificationFailure()
		}
	}()

	notifyCtx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	if err := e.sink.Notify(notifyCtx, outcome); err != nil {
		logger.Error("transaction executor notification failed", err, logger.Fields{
			"transactionId": outcome.TransactionID,
		})
		e.metrics.RecordNotificationFailure()
	}
}

// lockOrder returns the two ids in ascending order so that opposing
// transfers over the same pair always lock in the same sequence.
func lockOrder(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}
