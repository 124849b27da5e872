package handlers

import (
	"time"

	"service-dispatch/internal/domain"
)

type createAssignmentRequest struct {
	OrderID         string          `json:"order_id"`
	PickupLocation  domain.Location `json:"pickup_location"`
	DropoffLocation domain.Location `json:"dropoff_location"`
	OrderSummary    string          `json:"order_summary"`
	Priority        string          `json:"priority"`
}

type courierActionRequest struct {
	CourierID int64  `json:"courier_id"`
	Reason    string `json:"reason,omitempty"`
}

// adminActionRequest drives PUT /assignments/{id}. Exactly one action per
// request; fields beyond the action's own are ignored.
type adminActionRequest struct {
	Action          string `json:"action"`
	CourierID       int64  `json:"courier_id,omitempty"`
	Priority        string `json:"priority,omitempty"`
	ExtendBySeconds int    `json:"extend_by_seconds,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type bulkActionRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids,omitempty"`
	Status string   `json:"status,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

type historyEntryResponse struct {
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type assignmentResponse struct {
	ID              string                 `json:"id"`
	OrderID         string                 `json:"order_id"`
	Status          string                 `json:"status"`
	Priority        string                 `json:"priority"`
	AssignedTo      *int64                 `json:"assigned_to,omitempty"`
	CurrentAttempt  int                    `json:"current_attempt"`
	MaxAttempts     int                    `json:"max_attempts"`
	TimeoutAt       *time.Time             `json:"timeout_at,omitempty"`
	PickupLocation  domain.Location        `json:"pickup_location"`
	DropoffLocation domain.Location        `json:"dropoff_location"`
	OrderSummary    string                 `json:"order_summary,omitempty"`
	AdminNotes      string                 `json:"admin_notes,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	AssignedAt      *time.Time             `json:"assigned_at,omitempty"`
	AcceptedAt      *time.Time             `json:"accepted_at,omitempty"`
	PickedUpAt      *time.Time             `json:"picked_up_at,omitempty"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	ResponseTimeSec *float64               `json:"response_time_seconds,omitempty"`
	DeliveryTimeSec *float64               `json:"delivery_time_seconds,omitempty"`
	History         []historyEntryResponse `json:"history,omitempty"`
}

type listAssignmentsResponse struct {
	Assignments []assignmentResponse `json:"assignments"`
	Counts      map[string]int64     `json:"counts"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
}

type bulkResultResponse struct {
	Released int               `json:"released,omitempty"`
	Results  map[string]string `json:"results,omitempty"`
}
