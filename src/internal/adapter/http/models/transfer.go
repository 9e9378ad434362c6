package models

import (
	"strings"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type SubmitTransferRequest struct {
	SenderID   string `json:"senderId" validate:"required,max=64"`
	ReceiverID string `json:"receiverId" validate:"required,max=64"`
	Amount     string `json:"amount" validate:"required,decimal"`
}

func (r SubmitTransferRequest) Validate() error {
	return validateStruct(r)
}

// ToDomain assumes Validate has passed. Business rules such as a positive
// amount and distinct parties are enforced by the transfer service.
func (r SubmitTransferRequest) ToDomain() domain.TransferRequest {
	amount, _ := decimal.NewFromString(strings.TrimSpace(r.Amount))
	return domain.TransferRequest{
		SenderID:   strings.TrimSpace(r.SenderID),
		ReceiverID: strings.TrimSpace(r.ReceiverID),
		Amount:     amount,
	}
}

type SubmitTransferResponse struct {
	TransactionID string `json:"transactionId"`
	Queued        bool   `json:"queued"`
	Description   string `json:"description"`
}
