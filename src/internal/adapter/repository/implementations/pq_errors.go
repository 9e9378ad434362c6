package implementations

import (
	"errors"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/lib/pq"
)

const (
	pqCheckViolation      = "23514"
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerializationFail   = "40001"
	pqDeadlockDetected    = "40P01"
	pqLockNotAvailable    = "55P03"
)

// translatePQError maps driver errors onto domain errors the engine knows how
// to react to. Anything unrecognised is returned unchanged.
func translatePQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pqCheckViolation:
		switch pqErr.Constraint {
		case "accounts_balance_non_negative":
			return domain.ErrNegativeBalance
		case "transactions_amount_positive":
			return domain.NewValidationError("amount must be greater than zero")
		case "transactions_distinct_parties":
			return domain.NewValidationError("senderId and receiverId cannot be the same")
		case "transactions_state_transition":
			return domain.ErrInvalidTransition
		}
	case pqForeignKeyViolation:
		return domain.ErrRecordNotFound
	case pqSerializationFail, pqDeadlockDetected, pqLockNotAvailable:
		return domain.ErrVersionConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}
