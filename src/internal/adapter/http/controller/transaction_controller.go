package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/http/models"
	"github.com/api-sage/ledger-transfer-engine/src/internal/commons"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/service_interfaces"
)

type TransactionController struct {
	service service_interfaces.TransactionService
}

func NewTransactionController(service service_interfaces.TransactionService) *TransactionController {
	return &TransactionController{service: service}
}

func (c *TransactionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("GET /transactions/{id}", protect(http.HandlerFunc(c.get), authMiddleware))
	mux.Handle("POST /transactions/{id}/requeue", protect(http.HandlerFunc(c.requeue), authMiddleware))
	mux.Handle("GET /accounts/{id}/transactions", protect(http.HandlerFunc(c.listForAccount), authMiddleware))
}

func (c *TransactionController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	transaction, err := c.service.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError[models.TransactionResponse](w, r, err, start)
		return
	}

	response := commons.SuccessResponse("Transaction retrieved", models.NewTransactionResponse(transaction))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *TransactionController) requeue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	transaction, err := c.service.Requeue(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError[models.TransactionResponse](w, r, err, start)
		return
	}

	response := commons.SuccessResponse("Transaction requeued", models.NewTransactionResponse(transaction))
	writeJSON(w, http.StatusAccepted, response)
	logResponse(r, http.StatusAccepted, response, start)
}

func (c *TransactionController) listForAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	transactions, err := c.service.ListAccountTransactions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError[[]models.TransactionResponse](w, r, err, start)
		return
	}

	response := commons.SuccessResponse("Transactions retrieved", models.NewTransactionResponses(transactions))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
