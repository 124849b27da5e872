package app

import (
	"context"

	"service-dispatch/internal/service/orders"
	"service-dispatch/internal/transport/kafka"
)

func makeOrdersHandler(p *orders.Processor) kafka.HandleFunc {
	return func(ctx context.Context, event orders.Event) error {
		return p.Handle(ctx, event)
	}
}
