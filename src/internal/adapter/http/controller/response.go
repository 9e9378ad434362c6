package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/commons"
	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/dispatch"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// writeError maps err onto a status code and envelope and logs the outcome.
func writeError[T any](w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	status, message, details := classify(err)
	if status >= http.StatusInternalServerError {
		logError(r, err, nil)
	}

	response := commons.ErrorResponse[T](message, details...)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func classify(err error) (int, string, []string) {
	var validationErr *domain.ValidationError
	var accountErr *domain.AccountNotFoundError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation failed", validationErr.Problems
	case errors.As(err, &accountErr):
		return http.StatusNotFound, "account not found", []string{accountErr.Error()}
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, "record not found", nil
	case errors.Is(err, domain.ErrNotPending):
		return http.StatusConflict, "transaction is not pending", nil
	case errors.Is(err, dispatch.ErrQueueFull), errors.Is(err, dispatch.ErrDispatcherClosed):
		return http.StatusServiceUnavailable, "execution queue unavailable", []string{"retry later"}
	default:
		return http.StatusInternalServerError, "request failed", []string{"unable to process request right now"}
	}
}
