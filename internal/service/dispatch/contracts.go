package dispatch

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
)

type assignmentStore interface {
	Create(ctx context.Context, a *domain.Assignment) error
	Get(ctx context.Context, id string) (*domain.Assignment, error)
	FindActiveByOrder(ctx context.Context, orderID string) (*domain.Assignment, error)
	Transition(ctx context.Context, t domain.Transition, now time.Time) (*domain.Assignment, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Assignment, error)
	FindUnassigned(ctx context.Context, limit int) ([]domain.Assignment, error)
	ExtendTimeout(ctx context.Context, id string, by time.Duration, now time.Time) (*domain.Assignment, error)
	UpdatePriority(ctx context.Context, id string, p domain.Priority) (*domain.Assignment, error)
	UpdateAdminNotes(ctx context.Context, id string, notes string) error
	List(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error)
}

type courierDirectory interface {
	ListAvailable(ctx context.Context) ([]domain.Courier, error)
	Get(ctx context.Context, id int64) (*domain.Courier, error)
}

// Notifier publishes transition events for courier apps and tracking UIs.
// Delivery of notifications is best effort and never blocks a transition.
type Notifier interface {
	Publish(ctx context.Context, n domain.Notification) error
}
