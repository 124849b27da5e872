package handlers

import "service-dispatch/internal/domain"

func assignmentToResponse(a *domain.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:              a.ID,
		OrderID:         a.OrderID,
		Status:          string(a.Status),
		Priority:        string(a.Priority),
		AssignedTo:      a.AssignedTo,
		CurrentAttempt:  a.CurrentAttempt,
		MaxAttempts:     a.MaxAttempts,
		TimeoutAt:       a.TimeoutAt,
		PickupLocation:  a.Pickup,
		DropoffLocation: a.Dropoff,
		OrderSummary:    a.OrderSummary,
		AdminNotes:      a.AdminNotes,
		CreatedAt:       a.CreatedAt,
		AssignedAt:      a.AssignedAt,
		AcceptedAt:      a.AcceptedAt,
		PickedUpAt:      a.PickedUpAt,
		DeliveredAt:     a.DeliveredAt,
		CancelledAt:     a.CancelledAt,
	}

	// derived metrics are recomputed from timestamps, never persisted
	if d, ok := a.ResponseTime(); ok {
		sec := d.Seconds()
		resp.ResponseTimeSec = &sec
	}
	if d, ok := a.DeliveryTime(); ok {
		sec := d.Seconds()
		resp.DeliveryTimeSec = &sec
	}

	for _, h := range a.History {
		resp.History = append(resp.History, historyEntryResponse{
			FromStatus: string(h.FromStatus),
			ToStatus:   string(h.ToStatus),
			Actor:      h.Actor,
			Reason:     h.Reason,
			CreatedAt:  h.CreatedAt,
		})
	}
	return resp
}

func countsToResponse(counts domain.StatusCounts) map[string]int64 {
	out := make(map[string]int64, len(counts))
	for s, n := range counts {
		out[string(s)] = n
	}
	return out
}
