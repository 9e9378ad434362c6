package models

import (
	"strings"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	Balance string `json:"balance,omitempty" validate:"omitempty,decimal"`
}

func (r CreateAccountRequest) Validate() error {
	return validateStruct(r)
}

// InitialBalance is zero when no balance was supplied.
func (r CreateAccountRequest) InitialBalance() decimal.Decimal {
	raw := strings.TrimSpace(r.Balance)
	if raw == "" {
		return decimal.Zero
	}
	balance, _ := decimal.NewFromString(raw)
	return balance
}

type AccountResponse struct {
	ID        string `json:"id"`
	Balance   string `json:"balance"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func NewAccountResponse(account domain.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Balance:   account.Balance.String(),
		Version:   account.Version,
		CreatedAt: account.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: account.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
