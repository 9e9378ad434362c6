package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/logger"
	"github.com/shopspring/decimal"
)

type AccountService struct {
	accounts domain.AccountStore
}

func NewAccountService(accounts domain.AccountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (domain.Account, error) {
	if initialBalance.IsNegative() {
		return domain.Account{}, domain.NewValidationError("balance must not be negative")
	}

	account, err := s.accounts.Create(ctx, domain.Account{Balance: initialBalance})
	if err != nil {
		logger.Error("account service create failed", err, nil)
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	logger.Info("account service create success", logger.Fields{
		"accountId": account.ID,
		"balance":   account.Balance.String(),
	})
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Account{}, domain.NewValidationError("account id is required")
	}

	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Account{}, &domain.AccountNotFoundError{AccountID: id}
		}
		return domain.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return account, nil
}
