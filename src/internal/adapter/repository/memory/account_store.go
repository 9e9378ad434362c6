package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/google/uuid"
)

var errSessionClosed = errors.New("account session is closed")

// AccountStore keeps accounts in process memory. Each row carries its own
// exclusive lock so sessions block on the rows they touch and nothing else.
type AccountStore struct {
	mu    sync.RWMutex
	rows  map[string]*accountRow
	clock func() time.Time
}

type accountRow struct {
	account domain.Account
	lock    chan struct{}
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		rows:  make(map[string]*accountRow),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountStore) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	if account.Balance.IsNegative() {
		return domain.Account{}, fmt.Errorf("create account: %w", domain.ErrNegativeBalance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account.ID = strings.TrimSpace(account.ID)
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if _, exists := s.rows[account.ID]; exists {
		return domain.Account{}, fmt.Errorf("create account: id %s already exists", account.ID)
	}

	now := s.clock()
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now

	s.rows[account.ID] = &accountRow{
		account: account,
		lock:    make(chan struct{}, 1),
	}

	return account, nil
}

func (s *AccountStore) Get(_ context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[strings.TrimSpace(id)]
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	return row.account, nil
}

func (s *AccountStore) Begin(ctx context.Context) (domain.AccountSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin account session: %w", err)
	}
	return &accountSession{
		store:  s,
		held:   make(map[string]*accountRow),
		staged: make(map[string]domain.Account),
		base:   make(map[string]int64),
	}, nil
}

func (s *AccountStore) row(id string) (*accountRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	return row, ok
}

type accountSession struct {
	store  *AccountStore
	held   map[string]*accountRow
	staged map[string]domain.Account
	base   map[string]int64
	done   bool
}

func (t *accountSession) Read(ctx context.Context, id string, mode domain.LockMode) (domain.Account, error) {
	if t.done {
		return domain.Account{}, errSessionClosed
	}

	id = strings.TrimSpace(id)
	row, ok := t.store.row(id)
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}

	if mode == domain.LockExclusive {
		if _, held := t.held[id]; !held {
			select {
			case row.lock <- struct{}{}:
				t.held[id] = row
			case <-ctx.Done():
				return domain.Account{}, fmt.Errorf("lock account %s: %w", id, ctx.Err())
			}
		}
	}

	if staged, ok := t.staged[id]; ok {
		return staged, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return row.account, nil
}

func (t *accountSession) ConditionalWrite(_ context.Context, account domain.Account, expectedVersion int64) error {
	if t.done {
		return errSessionClosed
	}
	if account.Balance.IsNegative() {
		return domain.ErrNegativeBalance
	}

	row, ok := t.store.row(account.ID)
	if !ok {
		return domain.ErrRecordNotFound
	}

	current, staged := t.staged[account.ID]
	if !staged {
		t.store.mu.RLock()
		current = row.account
		t.store.mu.RUnlock()
	}
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	if !staged {
		t.base[account.ID] = current.Version
	}
	account.CreatedAt = current.CreatedAt
	account.Version = expectedVersion + 1
	account.UpdatedAt = t.store.clock()
	t.staged[account.ID] = account
	return nil
}

func (t *accountSession) Commit() error {
	if t.done {
		return errSessionClosed
	}
	defer t.finish()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for id := range t.staged {
		row, ok := t.store.rows[id]
		if !ok {
			return domain.ErrRecordNotFound
		}
		if row.account.Version != t.base[id] {
			return domain.ErrVersionConflict
		}
	}
	for id, next := range t.staged {
		t.store.rows[id].account = next
	}
	return nil
}

func (t *accountSession) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *accountSession) finish() {
	t.done = true
	t.staged = nil
	t.base = nil
	for id, row := range t.held {
		<-row.lock
		delete(t.held, id)
	}
}
