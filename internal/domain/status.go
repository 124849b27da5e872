package domain

type (
	// AssignmentStatus represents the lifecycle state of an assignment.
	AssignmentStatus string
	// Priority controls candidate ranking and sweep ordering.
	Priority string
)

// List of possible assignment statuses
const (
	StatusPending   AssignmentStatus = "pending"
	StatusAssigned  AssignmentStatus = "assigned"
	StatusAccepted  AssignmentStatus = "accepted"
	StatusInTransit AssignmentStatus = "in_transit"
	StatusDelivered AssignmentStatus = "delivered"
	StatusCancelled AssignmentStatus = "cancelled"
	StatusFailed    AssignmentStatus = "failed"
)

// List of possible priorities
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// allowedTransitions is the directed graph of legal status changes.
// assigned -> assigned covers an admin force-reassign; everything else
// follows the normal lifecycle.
var allowedTransitions = map[AssignmentStatus][]AssignmentStatus{
	StatusPending:   {StatusAssigned, StatusCancelled, StatusFailed},
	StatusAssigned:  {StatusAccepted, StatusPending, StatusAssigned, StatusCancelled},
	StatusAccepted:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
	StatusFailed:    {},
}

var allowedStatuses = [...]AssignmentStatus{
	StatusPending, StatusAssigned, StatusAccepted, StatusInTransit,
	StatusDelivered, StatusCancelled, StatusFailed,
}

var allowedPriorities = [...]Priority{
	PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent,
}

// Valid checks if the AssignmentStatus is valid
func (s AssignmentStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s AssignmentStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusFailed
}

// HoldsCourier reports whether the status requires a non-null assigned courier.
func (s AssignmentStatus) HoldsCourier() bool {
	return s == StatusAssigned || s == StatusAccepted || s == StatusInTransit
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to AssignmentStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid checks if the Priority is valid
func (p Priority) Valid() bool {
	for _, v := range allowedPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Rank returns the ordinal weight of the priority, higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}
