package domain

import "context"

type AccountStore interface {
	Create(ctx context.Context, account Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	Begin(ctx context.Context) (AccountSession, error)
}

// AccountSession is a unit of work over account rows. Exclusive locks taken
// by Read are held until Commit or Rollback; ConditionalWrite only becomes
// durable on Commit. Rollback after Commit is a no-op.
type AccountSession interface {
	Read(ctx context.Context, id string, mode LockMode) (Account, error)
	ConditionalWrite(ctx context.Context, account Account, expectedVersion int64) error
	Commit() error
	Rollback() error
}
