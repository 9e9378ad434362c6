package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]TransactionState{
		{TransactionStatePending, TransactionStateInProgress},
		{TransactionStateInProgress, TransactionStateSucceeded},
		{TransactionStateInProgress, TransactionStateFailed},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	states := []TransactionState{
		TransactionStatePending,
		TransactionStateInProgress,
		TransactionStateSucceeded,
		TransactionStateFailed,
	}
	count := 0
	for _, from := range states {
		for _, to := range states {
			if CanTransition(from, to) {
				count++
			}
		}
	}
	assert.Equal(t, len(allowed), count)

	assert.False(t, CanTransition(TransactionState("BOGUS"), TransactionStateInProgress))
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []TransactionState{TransactionStateSucceeded, TransactionStateFailed} {
		assert.True(t, terminal.IsTerminal())
		for _, to := range []TransactionState{TransactionStatePending, TransactionStateInProgress, TransactionStateSucceeded, TransactionStateFailed} {
			assert.False(t, CanTransition(terminal, to))
		}
	}
	assert.False(t, TransactionStatePending.IsTerminal())
	assert.False(t, TransactionState("").Valid())
}

func TestErrorsClassify(t *testing.T) {
	notFound := fmt.Errorf("submit: %w", &AccountNotFoundError{AccountID: "acc-9"})
	assert.ErrorIs(t, notFound, ErrRecordNotFound)
	assert.Contains(t, notFound.Error(), "acc-9")

	validation := NewValidationError("amount must be greater than zero", "senderId is required")
	assert.Equal(t, "amount must be greater than zero; senderId is required", validation.Error())

	cause := errors.New("connection refused")
	settle := &SettlementError{TransactionID: "tx", State: TransactionStateSucceeded, Err: cause}
	assert.ErrorIs(t, settle, cause)
	assert.Contains(t, settle.Error(), "SUCCEEDED")

	rejected := &SettlementError{TransactionID: "tx", State: TransactionStateFailed}
	assert.Contains(t, rejected.Error(), "transition rejected")
}
