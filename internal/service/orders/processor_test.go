package orders_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/orders"
)

type stubDispatch struct {
	createFn func(context.Context, dispatch.CreateRequest) (*domain.Assignment, error)
	cancelFn func(context.Context, string, string, string) (*domain.Assignment, error)
}

func (s *stubDispatch) Create(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
	if s.createFn == nil {
		return nil, errors.New("stubDispatch: create not stubbed")
	}
	return s.createFn(ctx, req)
}

func (s *stubDispatch) CancelByOrder(ctx context.Context, orderID, actor, reason string) (*domain.Assignment, error) {
	if s.cancelFn == nil {
		return nil, errors.New("stubDispatch: cancel not stubbed")
	}
	return s.cancelFn(ctx, orderID, actor, reason)
}

func createdEvent() orders.Event {
	return orders.Event{
		OrderID:            "order-1",
		Status:             orders.StatusCreated,
		Priority:           domain.PriorityHigh,
		RestaurantLocation: domain.Location{Lat: 55.75, Lon: 37.62},
		CustomerLocation:   domain.Location{Lat: 55.76, Lon: 37.64},
		OrderSummary:       "2x pizza",
	}
}

func TestProcessor_OnCreated(t *testing.T) {
	t.Parallel()

	var captured dispatch.CreateRequest
	svc := &stubDispatch{
		createFn: func(_ context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
			captured = req
			return &domain.Assignment{ID: "a-1", Status: domain.StatusAssigned}, nil
		},
	}
	p := orders.NewProcessor(svc, logx.Nop())

	require.NoError(t, p.Handle(context.Background(), createdEvent()))
	require.Equal(t, "order-1", captured.OrderID)
	require.Equal(t, domain.PriorityHigh, captured.Priority)
	require.InDelta(t, 55.75, captured.Pickup.Lat, 1e-9)
}

func TestProcessor_OnCreated_AlreadyDispatched(t *testing.T) {
	t.Parallel()

	svc := &stubDispatch{
		createFn: func(context.Context, dispatch.CreateRequest) (*domain.Assignment, error) {
			return nil, apperr.ErrConflict
		},
	}
	p := orders.NewProcessor(svc, logx.Nop())

	require.NoError(t, p.Handle(context.Background(), createdEvent()))
}

func TestProcessor_OnCreated_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	svc := &stubDispatch{
		createFn: func(context.Context, dispatch.CreateRequest) (*domain.Assignment, error) {
			return nil, boom
		},
	}
	p := orders.NewProcessor(svc, logx.Nop())

	require.ErrorIs(t, p.Handle(context.Background(), createdEvent()), boom)
}

func TestProcessor_OnCanceled(t *testing.T) {
	t.Parallel()

	var canceledOrder, actor string
	svc := &stubDispatch{
		cancelFn: func(_ context.Context, orderID, a, _ string) (*domain.Assignment, error) {
			canceledOrder, actor = orderID, a
			return &domain.Assignment{ID: "a-1", Status: domain.StatusCancelled}, nil
		},
	}
	p := orders.NewProcessor(svc, logx.Nop())

	e := orders.Event{OrderID: "order-2", Status: orders.StatusCanceled}
	require.NoError(t, p.Handle(context.Background(), e))
	require.Equal(t, "order-2", canceledOrder)
	require.Equal(t, domain.ActorCustomer, actor)
}

func TestProcessor_OnCanceled_NothingLive(t *testing.T) {
	t.Parallel()

	for _, sentinel := range []error{apperr.ErrNotFound, apperr.ErrInvalidTransition} {
		svc := &stubDispatch{
			cancelFn: func(context.Context, string, string, string) (*domain.Assignment, error) {
				return nil, sentinel
			},
		}
		p := orders.NewProcessor(svc, logx.Nop())

		e := orders.Event{OrderID: "order-3", Status: orders.StatusCanceled}
		require.NoError(t, p.Handle(context.Background(), e))
	}
}

func TestProcessor_UnknownStatusSkipped(t *testing.T) {
	t.Parallel()

	p := orders.NewProcessor(&stubDispatch{}, logx.Nop())

	e := orders.Event{OrderID: "order-4", Status: "refunded"}
	require.NoError(t, p.Handle(context.Background(), e))
}
