package models

import (
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
)

type TransactionResponse struct {
	ID            string `json:"id"`
	SenderID      string `json:"senderId"`
	ReceiverID    string `json:"receiverId"`
	Amount        string `json:"amount"`
	State         string `json:"state"`
	FailureReason string `json:"failureReason,omitempty"`
	Version       int64  `json:"version"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func NewTransactionResponse(transaction domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            transaction.ID,
		SenderID:      transaction.SenderID,
		ReceiverID:    transaction.ReceiverID,
		Amount:        transaction.Amount.String(),
		State:         string(transaction.State),
		FailureReason: transaction.FailureReason,
		Version:       transaction.Version,
		CreatedAt:     transaction.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     transaction.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func NewTransactionResponses(transactions []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(transactions))
	for _, transaction := range transactions {
		out = append(out, NewTransactionResponse(transaction))
	}
	return out
}
