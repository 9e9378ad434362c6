package service_interfaces

import (
	"context"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"github.com/api-sage/ledger-transfer-engine/src/internal/usecase/services"
)

type TransferService interface {
	Submit(ctx context.Context, req domain.TransferRequest) (services.Submission, error)
}
