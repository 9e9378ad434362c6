package notification

import (
	"context"
	"errors"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
)

// Fanout delivers each outcome to every sink and joins their errors.
type Fanout []domain.NotificationSink

func (f Fanout) Notify(ctx context.Context, outcome domain.TransferOutcome) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
