package domain

import "github.com/shopspring/decimal"

type TransferRequest struct {
	SenderID   string
	ReceiverID string
	Amount     decimal.Decimal
}

type TransferOutcome struct {
	TransactionID string
	SenderID      string
	ReceiverID    string
	Amount        decimal.Decimal
	State         TransactionState
	Reason        string
}

func (o TransferOutcome) Succeeded() bool {
	return o.State == TransactionStateSucceeded
}
