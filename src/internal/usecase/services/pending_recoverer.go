package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/dispatch"
)

const defaultRecoveryBatch = 100

// PendingRecoverer re-dispatches transactions that have sat in PENDING longer
// than the grace period, e.g. after a crash or a full dispatch queue.
type PendingRecoverer struct {
	transactions domain.TransactionStore
	scheduler    *Scheduler
	interval     time.Duration
	grace        time.Duration
	batch        int
	clock        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPendingRecoverer(transactions domain.TransactionStore, scheduler *Scheduler, interval, grace time.Duration) *PendingRecoverer {
	return &PendingRecoverer{
		transactions: transactions,
		scheduler:    scheduler,
		interval:     interval,
		grace:        grace,
		batch:        defaultRecoveryBatch,
		clock:        time.Now,
	}
}

// Sweep schedules one batch of stale PENDING transactions and reports how
// many were queued. It stops early when the dispatcher pushes back.
func (r *PendingRecoverer) Sweep(ctx context.Context) (int, error) {
	stale, err := r.transactions.ListByState(ctx, domain.TransactionStatePending, r.clock().Add(-r.grace), r.batch)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, transaction := range stale {
		if err := r.scheduler.Schedule(ctx, transaction.ID, SourceRecovery); err != nil {
			if errors.Is(err, dispatch.ErrQueueFull) || errors.Is(err, dispatch.ErrDispatcherClosed) {
				break
			}
			return queued, err
		}
		queued++
	}

	if queued > 0 {
		logger.Info("pending recoverer requeued transactions", logger.Fields{
			"count": queued,
			"found": len(stale),
		})
	}
	return queued, nil
}

// Start runs Sweep every interval until Stop is called or ctx ends.
func (r *PendingRecoverer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil || r.interval <= 0 {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
					logger.Error("pending recoverer sweep failed", err, nil)
				}
			}
		}
	}(r.done)
}

func (r *PendingRecoverer) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
