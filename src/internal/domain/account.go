package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID        string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockMode selects how a read inside an AccountSession treats the row.
type LockMode int

const (
	LockNone LockMode = iota
	LockExclusive
)

func (m LockMode) String() string {
	switch m {
	case LockNone:
		return "none"
	case LockExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}
