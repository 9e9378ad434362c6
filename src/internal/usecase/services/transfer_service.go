package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/api-sage/ledger-transfer-engine/src/internal/observability"
)

// Submission is what a caller learns from Submit: the durable PENDING record
// and whether it was handed to a worker. A transaction that was not queued
// stays PENDING until requeued or recovered.
type Submission struct {
	Transaction domain.Transaction
	Queued      bool
}

type TransferService struct {
	accounts     domain.AccountStore
	transactions domain.TransactionStore
	scheduler    *Scheduler
	metrics      *observability.Metrics
}

func NewTransferService(
	accounts domain.AccountStore,
	transactions domain.TransactionStore,
	scheduler *Scheduler,
	metrics *observability.Metrics,
) *TransferService {
	return &TransferService{
		accounts:     accounts,
		transactions: transactions,
		scheduler:    scheduler,
		metrics:      metrics,
	}
}

func (s *TransferService) Submit(ctx context.Context, req domain.TransferRequest) (Submission, error) {
	req.SenderID = strings.TrimSpace(req.SenderID)
	req.ReceiverID = strings.TrimSpace(req.ReceiverID)

	logger.Info("transfer service submit request", logger.Fields{
		"senderId":   req.SenderID,
		"receiverId": req.ReceiverID,
		"amount":     req.Amount.String(),
	})

	if err := validateTransferRequest(req); err != nil {
		logger.Info("transfer service submit rejected", logger.Fields{
			"error": err.Error(),
		})
		return Submission{}, err
	}

	for _, id := range []string{req.SenderID, req.ReceiverID} {
		if _, err := s.accounts.Get(ctx, id); err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return Submission{}, &domain.AccountNotFoundError{AccountID: id}
			}
			return Submission{}, fmt.Errorf("look up account %s: %w", id, err)
		}
	}

	created, err := s.transactions.Create(ctx, domain.Transaction{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		State:      domain.TransactionStatePending,
	})
	if err != nil {
		logger.Error("transfer service create transaction failed", err, logger.Fields{
			"senderId":   req.SenderID,
			"receiverId": req.ReceiverID,
		})
		return Submission{}, fmt.Errorf("create transaction: %w", err)
	}
	s.metrics.RecordSubmitted()

	submission := Submission{Transaction: created, Queued: true}
	if err := s.scheduler.Schedule(ctx, created.ID, SourceSubmit); err != nil {
		logger.Error("transfer service dispatch failed, left pending", err, logger.Fields{
			"transactionId": created.ID,
		})
		submission.Queued = false
	}

	logger.Info("transfer service submit success", logger.Fields{
		"transactionId": created.ID,
		"queued":        submission.Queued,
	})

	return submission, nil
}

func validateTransferRequest(req domain.TransferRequest) error {
	var problems []string
	if req.SenderID == "" {
		problems = append(problems, "senderId is required")
	}
	if req.ReceiverID == "" {
		problems = append(problems, "receiverId is required")
	}
	if !req.Amount.IsPositive() {
		problems = append(problems, "amount must be greater than zero")
	}
	if req.SenderID != "" && req.SenderID == req.ReceiverID {
		problems = append(problems, "senderId and receiverId cannot be the same")
	}

	if len(problems) > 0 {
		return domain.NewValidationError(problems...)
	}
	return nil
}
