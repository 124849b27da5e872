package orders

import (
	"context"
	"errors"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/dispatch"
)

// Processor reacts to order events: a created order opens an assignment, a
// canceled order closes the live one. Events with unknown statuses are
// skipped so new upstream statuses do not wedge the consumer group.
type Processor struct {
	dispatch DispatchPort
	logger   logx.Logger
	factory  *actionFactory
}

// NewProcessor creates a new orders.Processor.
func NewProcessor(dispatchSvc DispatchPort, logger logx.Logger) *Processor {
	p := &Processor{
		dispatch: dispatchSvc,
		logger:   logger,
	}
	p.factory = newActionFactory(p.onCreated, p.onCanceled)
	return p
}

// Handle processes a single order event.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	fn, ok := p.factory.get(e.Status)
	if !ok {
		p.logger.Debug("skipping order event with unknown status",
			logx.String("order_id", e.OrderID),
			logx.String("status", e.Status),
		)
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onCreated(ctx context.Context, e Event) error {
	_, err := p.dispatch.Create(ctx, dispatch.CreateRequest{
		OrderID:      e.OrderID,
		Priority:     e.Priority,
		Pickup:       e.RestaurantLocation,
		Dropoff:      e.CustomerLocation,
		OrderSummary: e.OrderSummary,
	})
	if errors.Is(err, apperr.ErrConflict) {
		// replayed event, the order is already being dispatched
		return nil
	}
	return err
}

func (p *Processor) onCanceled(ctx context.Context, e Event) error {
	_, err := p.dispatch.CancelByOrder(ctx, e.OrderID, domain.ActorCustomer, "order canceled")
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidTransition) {
		// nothing live to cancel, or the order already moved past the point
		// of cancellation
		return nil
	}
	return err
}
