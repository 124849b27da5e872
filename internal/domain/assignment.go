package domain

import "time"

// Actors recorded in the assignment history.
const (
	ActorCourier  = "courier"
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
	ActorSystem   = "system"
)

// Assignment tracks one order's journey from unassigned to
// delivered, cancelled or failed. It is mutated exclusively through the
// dispatch service's conditional transitions.
type Assignment struct {
	ID       string
	OrderID  string
	Status   AssignmentStatus
	Priority Priority

	// AssignedTo is non-nil exactly while status is assigned, accepted or
	// in_transit.
	AssignedTo *int64

	// CandidateQueue holds courier ids ranked for the current attempt cycle,
	// most eligible first, so reassignment does not recompute the full
	// ranking within a short window.
	CandidateQueue []int64

	// CurrentAttempt counts releases (timeouts and rejections), not offers:
	// the first courier holds the offer at attempt 0.
	CurrentAttempt int
	MaxAttempts    int

	// TimeoutAt is non-nil exactly while status is assigned.
	TimeoutAt *time.Time

	Pickup       Location
	Dropoff      Location
	OrderSummary string
	AdminNotes   string

	CreatedAt   time.Time
	AssignedAt  *time.Time
	AcceptedAt  *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	// History is the append-only audit trail, oldest first. Populated on read
	// from the external history log.
	History []HistoryEntry
}

// HistoryEntry is one immutable audit record of a status change.
type HistoryEntry struct {
	AssignmentID string
	FromStatus   AssignmentStatus
	ToStatus     AssignmentStatus
	Actor        string
	Reason       string
	CreatedAt    time.Time
}

// Terminal reports whether the assignment reached a final status.
func (a *Assignment) Terminal() bool {
	return a.Status.Terminal()
}

// Expired reports whether the response window has passed at the given moment.
// Only meaningful while status is assigned.
func (a *Assignment) Expired(now time.Time) bool {
	return a.TimeoutAt != nil && !now.Before(*a.TimeoutAt)
}

// ResponseTime returns how long the accepting courier took to respond.
// Derived metrics are recomputed from timestamps at read time, never persisted.
func (a *Assignment) ResponseTime() (time.Duration, bool) {
	if a.AssignedAt == nil || a.AcceptedAt == nil {
		return 0, false
	}
	return a.AcceptedAt.Sub(*a.AssignedAt), true
}

// DeliveryTime returns the span from acceptance to delivery.
func (a *Assignment) DeliveryTime() (time.Duration, bool) {
	if a.AcceptedAt == nil || a.DeliveredAt == nil {
		return 0, false
	}
	return a.DeliveredAt.Sub(*a.AcceptedAt), true
}

// Transition is the conditional state change applied only if the persisted
// status and assigned courier still match the caller's expectations. It is
// the single concurrency-correctness primitive of the engine.
type Transition struct {
	ID              string
	ExpectedStatus  AssignmentStatus
	ExpectedCourier *int64

	NewStatus AssignmentStatus
	// NewCourier is set when entering assigned (or on force-reassign) and nil
	// otherwise; statuses that do not hold a courier always clear the field.
	NewCourier *int64
	// TimeoutAt is set when entering assigned and nil otherwise.
	TimeoutAt *time.Time

	IncrementAttempt bool
	// CandidateQueue, when non-nil, replaces the stored queue.
	CandidateQueue []int64
	// EnforceCapacity re-checks the target courier's load at write time.
	EnforceCapacity bool
	// RequireNotExpired makes the write land only while the response window
	// is still open. Set on the accept path.
	RequireNotExpired bool

	Actor  string
	Reason string
}

// ListFilter narrows assignment listings for operational dashboards.
type ListFilter struct {
	Status     *AssignmentStatus
	AssignedTo *int64
	Priority   *Priority
	Page       int
	Limit      int
}

// StatusCounts summarises how many assignments sit in each status.
type StatusCounts map[AssignmentStatus]int64

// Notification is the event emitted on every successful transition. The
// engine produces it; transport to courier clients and tracking UIs is owned
// elsewhere.
type Notification struct {
	AssignmentID       string           `json:"assignment_id"`
	OrderID            string           `json:"order_id"`
	Status             AssignmentStatus `json:"status"`
	Priority           Priority         `json:"priority"`
	CourierID          *int64           `json:"courier_id,omitempty"`
	RestaurantLocation Location         `json:"restaurant_location"`
	CustomerLocation   Location         `json:"customer_location"`
	OrderSummary       string           `json:"order_summary"`
	TimeoutAt          *time.Time       `json:"timeout_at,omitempty"`
}
