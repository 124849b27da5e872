package handlers

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/dispatch"
)

type dispatchUsecase interface {
	Create(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error)
	Get(ctx context.Context, id string) (*domain.Assignment, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error)
	Accept(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	Reject(ctx context.Context, id string, courierID int64, reason string) (*domain.Assignment, error)
	MarkPickedUp(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	MarkDelivered(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	Cancel(ctx context.Context, id, actor, reason string) (*domain.Assignment, error)
	Reassign(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	Redispatch(ctx context.Context, id string) (*domain.Assignment, error)
	ExtendTimeout(ctx context.Context, id string, by time.Duration) (*domain.Assignment, error)
	UpdatePriority(ctx context.Context, id string, p domain.Priority) (*domain.Assignment, error)
	UpdateAdminNotes(ctx context.Context, id, notes string) error
	HandleTimeouts(ctx context.Context) (int, error)
}

// NewDispatchUsecase wires a dispatch.Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}
