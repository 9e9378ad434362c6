package notification

import (
	"context"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
)

// LogSink writes every outcome to the structured log.
type LogSink struct{}

func NewLogSink() LogSink {
	return LogSink{}
}

func (LogSink) Notify(_ context.Context, outcome domain.TransferOutcome) error {
	logger.Info("transfer outcome", logger.Fields{
		"transactionId": outcome.TransactionID,
		"senderId":      outcome.SenderID,
		"receiverId":    outcome.ReceiverID,
		"amount":        outcome.Amount.String(),
		"state":         outcome.State,
		"success":       outcome.Succeeded(),
		"reason":        outcome.Reason,
	})
	return nil
}
