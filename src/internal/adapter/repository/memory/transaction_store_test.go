package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPending(t *testing.T, store *TransactionStore, sender, receiver string) domain.Transaction {
	t.Helper()
	created, err := store.Create(context.Background(), domain.Transaction{
		SenderID:   sender,
		ReceiverID: receiver,
		Amount:     decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	return created
}

func TestTransactionStoreCreateDefaultsToPending(t *testing.T) {
	store := NewTransactionStore()
	created := newPending(t, store, "a", "b")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.TransactionStatePending, created.State)
	assert.Equal(t, int64(1), created.Version)
}

func TestTransactionStoreCreateRejectsNonPending(t *testing.T) {
	_, err := NewTransactionStore().Create(context.Background(), domain.Transaction{State: domain.TransactionStateSucceeded})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransactionStoreCreateRejectsInvalidTransfers(t *testing.T) {
	cases := []struct {
		name        string
		transaction domain.Transaction
	}{
		{name: "zero amount", transaction: domain.Transaction{SenderID: "a", ReceiverID: "b", Amount: decimal.Zero}},
		{name: "negative amount", transaction: domain.Transaction{SenderID: "a", ReceiverID: "b", Amount: decimal.NewFromInt(-1)}},
		{name: "same parties", transaction: domain.Transaction{SenderID: "a", ReceiverID: "a", Amount: decimal.NewFromInt(1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewTransactionStore()
			_, err := store.Create(context.Background(), tc.transaction)

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)

			listed, err := store.ListByAccount(context.Background(), "a")
			require.NoError(t, err)
			assert.Empty(t, listed)
		})
	}
}

func TestTransactionStoreKeepsFullPrecision(t *testing.T) {
	store := NewTransactionStore()
	created, err := store.Create(context.Background(), domain.Transaction{
		SenderID:   "a",
		ReceiverID: "b",
		Amount:     decimal.RequireFromString("0.000000001"),
	})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.000000001", got.Amount.String())
}

func TestTransactionStoreTransitionFollowsStateMachine(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	created := newPending(t, store, "a", "b")

	ok, err := store.Transition(ctx, created.ID, domain.TransactionStatePending, domain.TransactionStateInProgress, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Transition(ctx, created.ID, domain.TransactionStatePending, domain.TransactionStateInProgress, "")
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	ok, err = store.Transition(ctx, created.ID, domain.TransactionStateInProgress, domain.TransactionStateFailed, domain.ReasonInsufficientBalance)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStateFailed, got.State)
	assert.Equal(t, domain.ReasonInsufficientBalance, got.FailureReason)
	assert.Equal(t, int64(3), got.Version)
}

func TestTransactionStoreRejectsInvalidEdges(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	created := newPending(t, store, "a", "b")

	_, err := store.Transition(ctx, created.ID, domain.TransactionStatePending, domain.TransactionStateSucceeded, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = store.Transition(ctx, created.ID, domain.TransactionStateSucceeded, domain.TransactionStatePending, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransactionStoreTransitionMissing(t *testing.T) {
	_, err := NewTransactionStore().Transition(context.Background(), "nope", domain.TransactionStatePending, domain.TransactionStateInProgress, "")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestTransactionStoreConcurrentClaimHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	created := newPending(t, store, "a", "b")

	var winners atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Transition(ctx, created.ID, domain.TransactionStatePending, domain.TransactionStateInProgress, "")
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners.Load())
}

func TestTransactionStoreListByAccount(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	newPending(t, store, "a", "b")
	newPending(t, store, "c", "a")
	newPending(t, store, "b", "c")

	got, err := store.ListByAccount(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTransactionStoreListByState(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	first := newPending(t, store, "a", "b")
	newPending(t, store, "a", "b")
	newPending(t, store, "a", "b")

	_, err := store.Transition(ctx, first.ID, domain.TransactionStatePending, domain.TransactionStateInProgress, "")
	require.NoError(t, err)

	got, err := store.ListByState(ctx, domain.TransactionStatePending, time.Now().Add(time.Second), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.TransactionStatePending, got[0].State)

	none, err := store.ListByState(ctx, domain.TransactionStatePending, time.Now().Add(-time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
