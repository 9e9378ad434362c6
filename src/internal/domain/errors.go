package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrVersionConflict     = errors.New("version conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrNotPending          = errors.New("transaction is not pending")
	ErrNegativeBalance     = errors.New("balance must not be negative")
)

type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	return strings.Join(e.Problems, "; ")
}

type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrRecordNotFound
}

// SettlementError means the terminal state could not be recorded. The
// transaction is left IN_PROGRESS and needs an operator.
type SettlementError struct {
	TransactionID string
	State         TransactionState
	Err           error
}

func (e *SettlementError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("settle transaction %s as %s: transition rejected", e.TransactionID, e.State)
	}
	return fmt.Sprintf("settle transaction %s as %s: %v", e.TransactionID, e.State, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
