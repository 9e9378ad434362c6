package service_interfaces

import (
	"context"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountService interface {
	CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (domain.Account, error)
	GetAccount(ctx context.Context, id string) (domain.Account, error)
}
