package services

import (
	"context"
	"fmt"

	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/api-sage/ledger-transfer-engine/src/internal/observability"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/dispatch"
)

const (
	SourceSubmit   = "submit"
	SourceRequeue  = "requeue"
	SourceRecovery = "recovery"
)

type Executor interface {
	Execute(ctx context.Context, transactionID string) error
}

// Scheduler hands transaction ids to the executor through a dispatcher.
type Scheduler struct {
	executor   Executor
	dispatcher dispatch.Dispatcher
	metrics    *observability.Metrics
}

func NewScheduler(executor Executor, dispatcher dispatch.Dispatcher, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		executor:   executor,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

func (s *Scheduler) Schedule(ctx context.Context, transactionID string, source string) error {
	err := s.dispatcher.Submit(ctx, func(taskCtx context.Context) {
		if err := s.executor.Execute(taskCtx, transactionID); err != nil {
			logger.Error("scheduled execution failed", err, logger.Fields{
				"transactionId": transactionID,
				"source":        source,
			})
		}
	})
	if err != nil {
		s.metrics.RecordDispatchRejected(source)
		return fmt.Errorf("schedule transaction %s: %w", transactionID, err)
	}
	return nil
}
