package orders

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/dispatch"
)

// DispatchPort abstracts the subset of dispatch operations needed by the
// Processor when handling order events.
type DispatchPort interface {
	Create(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error)
	CancelByOrder(ctx context.Context, orderID, actor, reason string) (*domain.Assignment, error)
}
