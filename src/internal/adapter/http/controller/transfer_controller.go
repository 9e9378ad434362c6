package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/http/models"
	"github.com/api-sage/ledger-transfer-engine/src/internal/commons"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/service_interfaces"
)

const (
	descriptionQueued  = "Transaction queued for execution"
	descriptionPending = "Transaction recorded; execution will be retried"
)

type TransferController struct {
	service service_interfaces.TransferService
}

func NewTransferController(service service_interfaces.TransferService) *TransferController {
	return &TransferController{service: service}
}

func (c *TransferController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /transfers", protect(http.HandlerFunc(c.submit), authMiddleware))
}

func (c *TransferController) submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.SubmitTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.SubmitTransferResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		writeError[models.SubmitTransferResponse](w, r, err, start)
		return
	}

	submission, err := c.service.Submit(r.Context(), req.ToDomain())
	if err != nil {
		writeError[models.SubmitTransferResponse](w, r, err, start)
		return
	}

	description := descriptionQueued
	if !submission.Queued {
		description = descriptionPending
	}
	response := commons.SuccessResponse("Transfer accepted", models.SubmitTransferResponse{
		TransactionID: submission.Transaction.ID,
		Queued:        submission.Queued,
		Description:   description,
	})
	writeJSON(w, http.StatusAccepted, response)
	logResponse(r, http.StatusAccepted, response, start)
}

func protect(handler http.Handler, authMiddleware func(http.Handler) http.Handler) http.Handler {
	if authMiddleware == nil {
		return handler
	}
	return authMiddleware(handler)
}
