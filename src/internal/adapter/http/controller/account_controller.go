package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/adapter/http/models"
	"github.com/api-sage/ledger-transfer-engine/src/internal/commons"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/service_interfaces"
)

type AccountController struct {
	service service_interfaces.AccountService
}

func NewAccountController(service service_interfaces.AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /accounts", protect(http.HandlerFunc(c.createAccount), authMiddleware))
	mux.Handle("GET /accounts/{id}", protect(http.HandlerFunc(c.getAccount), authMiddleware))
}

func (c *AccountController) createAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AccountResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		writeError[models.AccountResponse](w, r, err, start)
		return
	}

	account, err := c.service.CreateAccount(r.Context(), req.InitialBalance())
	if err != nil {
		writeError[models.AccountResponse](w, r, err, start)
		return
	}

	response := commons.SuccessResponse("Account created", models.NewAccountResponse(account))
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	account, err := c.service.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError[models.AccountResponse](w, r, err, start)
		return
	}

	response := commons.SuccessResponse("Account retrieved", models.NewAccountResponse(account))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
