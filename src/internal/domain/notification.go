package domain

import "context"

// NotificationSink receives settled outcomes for best-effort delivery.
type NotificationSink interface {
	Notify(ctx context.Context, outcome TransferOutcome) error
}
