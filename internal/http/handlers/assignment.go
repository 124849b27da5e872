package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/dispatch"
)

// AssignmentHandler handles HTTP requests for assignment resources.
type AssignmentHandler struct {
	usecase dispatchUsecase
	logger  logx.Logger
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(logger logx.Logger, uc dispatchUsecase) *AssignmentHandler {
	return &AssignmentHandler{usecase: uc, logger: logger}
}

// Create handles POST /assignments. Returns 201 when a courier was assigned
// immediately, 202 when the assignment is pending because no candidate is
// available right now.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	a, err := h.usecase.Create(r.Context(), dispatch.CreateRequest{
		OrderID:      req.OrderID,
		Priority:     domain.Priority(req.Priority),
		Pickup:       req.PickupLocation,
		Dropoff:      req.DropoffLocation,
		OrderSummary: req.OrderSummary,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if a.Status == domain.StatusPending {
		status = http.StatusAccepted
	}
	writeJSON(h.logger, w, r, status, assignmentToResponse(a))
}

// Get handles GET /assignments/{id} and returns the assignment with its
// full history.
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}

	a, err := h.usecase.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(a))
}

// Accept handles POST /assignments/{id}/accept.
func (h *AssignmentHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.courierAction(w, r, func(id string, req courierActionRequest) (*domain.Assignment, error) {
		return h.usecase.Accept(r.Context(), id, req.CourierID)
	})
}

// Reject handles POST /assignments/{id}/reject.
func (h *AssignmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.courierAction(w, r, func(id string, req courierActionRequest) (*domain.Assignment, error) {
		return h.usecase.Reject(r.Context(), id, req.CourierID, req.Reason)
	})
}

// Pickup handles POST /assignments/{id}/pickup.
func (h *AssignmentHandler) Pickup(w http.ResponseWriter, r *http.Request) {
	h.courierAction(w, r, func(id string, req courierActionRequest) (*domain.Assignment, error) {
		return h.usecase.MarkPickedUp(r.Context(), id, req.CourierID)
	})
}

// Delivered handles POST /assignments/{id}/delivered.
func (h *AssignmentHandler) Delivered(w http.ResponseWriter, r *http.Request) {
	h.courierAction(w, r, func(id string, req courierActionRequest) (*domain.Assignment, error) {
		return h.usecase.MarkDelivered(r.Context(), id, req.CourierID)
	})
}

// Cancel handles POST /assignments/{id}/cancel on behalf of the customer.
func (h *AssignmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}

	var req courierActionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	a, err := h.usecase.Cancel(r.Context(), id, domain.ActorCustomer, req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(a))
}

// AdminUpdate handles PUT /assignments/{id} with a single admin action:
// reassign, forceAssign, cancel, extendTimeout, updatePriority or updateNotes.
func (h *AssignmentHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}

	var req adminActionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	var (
		a   *domain.Assignment
		err error
	)
	switch req.Action {
	case "reassign":
		a, err = h.usecase.Redispatch(r.Context(), id)
	case "forceAssign":
		if req.CourierID <= 0 {
			writeError(h.logger, w, r, http.StatusBadRequest, "courier_id required")
			return
		}
		a, err = h.usecase.Reassign(r.Context(), id, req.CourierID)
	case "cancel":
		a, err = h.usecase.Cancel(r.Context(), id, domain.ActorAdmin, req.Reason)
	case "extendTimeout":
		a, err = h.usecase.ExtendTimeout(r.Context(), id, time.Duration(req.ExtendBySeconds)*time.Second)
	case "updatePriority":
		a, err = h.usecase.UpdatePriority(r.Context(), id, domain.Priority(req.Priority))
	case "updateNotes":
		if err = h.usecase.UpdateAdminNotes(r.Context(), id, req.Notes); err == nil {
			a, err = h.usecase.Get(r.Context(), id)
		}
	default:
		writeError(h.logger, w, r, http.StatusBadRequest, "unknown action")
		return
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(a))
}

// Bulk handles POST /assignments/bulk with actions handleTimeouts,
// bulkReassign and bulkUpdateStatus.
func (h *AssignmentHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkActionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	switch req.Action {
	case "handleTimeouts":
		released, err := h.usecase.HandleTimeouts(r.Context())
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(h.logger, w, r, http.StatusOK, bulkResultResponse{Released: released})

	case "bulkReassign":
		results := make(map[string]string, len(req.IDs))
		for _, id := range req.IDs {
			a, err := h.usecase.Redispatch(r.Context(), id)
			if err != nil {
				results[id] = "error: " + domainErrorMessage(err)
				continue
			}
			results[id] = string(a.Status)
		}
		writeJSON(h.logger, w, r, http.StatusOK, bulkResultResponse{Results: results})

	case "bulkUpdateStatus":
		// cancellation is the only bulk status change an operator may force
		if req.Status != string(domain.StatusCancelled) {
			writeError(h.logger, w, r, http.StatusBadRequest, "unsupported bulk status")
			return
		}
		results := make(map[string]string, len(req.IDs))
		for _, id := range req.IDs {
			a, err := h.usecase.Cancel(r.Context(), id, domain.ActorAdmin, req.Reason)
			if err != nil {
				results[id] = "error: " + domainErrorMessage(err)
				continue
			}
			results[id] = string(a.Status)
		}
		writeJSON(h.logger, w, r, http.StatusOK, bulkResultResponse{Results: results})

	default:
		writeError(h.logger, w, r, http.StatusBadRequest, "unknown action")
	}
}

// List handles GET /assignments?status=&assignedTo=&priority=&page=&limit=
// and returns a page of assignments plus per-status counts.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f domain.ListFilter
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		s := domain.AssignmentStatus(v)
		f.Status = &s
	}
	if v := strings.TrimSpace(q.Get("priority")); v != "" {
		p := domain.Priority(v)
		f.Priority = &p
	}
	if v := strings.TrimSpace(q.Get("assignedTo")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid assignedTo")
			return
		}
		f.AssignedTo = &id
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	list, counts, err := h.usecase.List(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}

	resp := listAssignmentsResponse{
		Assignments: make([]assignmentResponse, 0, len(list)),
		Counts:      countsToResponse(counts),
		Page:        page,
		Limit:       limit,
	}
	for i := range list {
		resp.Assignments = append(resp.Assignments, assignmentToResponse(&list[i]))
	}
	writeJSON(h.logger, w, r, http.StatusOK, resp)
}

func (h *AssignmentHandler) courierAction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(id string, req courierActionRequest) (*domain.Assignment, error),
) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}

	var req courierActionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.CourierID <= 0 {
		writeError(h.logger, w, r, http.StatusBadRequest, "courier_id required")
		return
	}

	a, err := fn(id, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(a))
}

func (h *AssignmentHandler) assignmentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid assignment id")
		return "", false
	}
	return id, true
}

func (h *AssignmentHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, apperr.ErrInvalid):
		status, msg = http.StatusBadRequest, "invalid input"
	case errors.Is(err, apperr.ErrNotFound):
		status, msg = http.StatusNotFound, "assignment not found"
	case errors.Is(err, apperr.ErrExpired):
		status, msg = http.StatusConflict, "assignment expired"
	case errors.Is(err, apperr.ErrInvalidTransition):
		status, msg = http.StatusConflict, "invalid state transition"
	case errors.Is(err, apperr.ErrCourierBusy):
		status, msg = http.StatusConflict, "courier capacity exceeded"
	case errors.Is(err, apperr.ErrNoCandidate):
		status, msg = http.StatusConflict, "no candidate available"
	case errors.Is(err, apperr.ErrConflict):
		status, msg = http.StatusConflict, "concurrent modification conflict"
	}
	writeError(h.logger, w, r, status, msg)
}

func domainErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not found"
	case errors.Is(err, apperr.ErrInvalidTransition):
		return "invalid state transition"
	case errors.Is(err, apperr.ErrNoCandidate):
		return "no candidate available"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	default:
		return "internal error"
	}
}
