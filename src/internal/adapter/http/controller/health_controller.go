package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/commons"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type HealthController struct {
	storage Pinger
	timeout time.Duration
}

func NewHealthController(storage Pinger) *HealthController {
	return &HealthController{storage: storage, timeout: 2 * time.Second}
}

// RegisterRoutes ignores authMiddleware; health checks run without credentials.
func (c *HealthController) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /healthz", c.health)
}

func (c *HealthController) health(w http.ResponseWriter, r *http.Request) {
	if c.storage == nil {
		writeJSON(w, http.StatusOK, commons.SuccessResponse("ok", HealthResponse{Status: "up", Storage: "memory"}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	if err := c.storage.PingContext(ctx); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusServiceUnavailable, commons.ErrorResponse[HealthResponse]("storage unavailable", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, commons.SuccessResponse("ok", HealthResponse{Status: "up", Storage: "postgres"}))
}
