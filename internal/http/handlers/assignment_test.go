package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/testutil"
)

const testAssignmentID = "0b54230e-6d4e-4f19-a38f-9f1a4f0f2d11"

type stubUsecase struct {
	createFn         func(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error)
	getFn            func(ctx context.Context, id string) (*domain.Assignment, error)
	listFn           func(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error)
	acceptFn         func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	rejectFn         func(ctx context.Context, id string, courierID int64, reason string) (*domain.Assignment, error)
	pickupFn         func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	deliveredFn      func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	cancelFn         func(ctx context.Context, id, actor, reason string) (*domain.Assignment, error)
	reassignFn       func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error)
	redispatchFn     func(ctx context.Context, id string) (*domain.Assignment, error)
	extendFn         func(ctx context.Context, id string, by time.Duration) (*domain.Assignment, error)
	updPriorityFn    func(ctx context.Context, id string, p domain.Priority) (*domain.Assignment, error)
	updNotesFn       func(ctx context.Context, id, notes string) error
	handleTimeoutsFn func(ctx context.Context) (int, error)
}

func (s *stubUsecase) Create(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
	if s.createFn == nil {
		panic("Create not expected in this test")
	}
	return s.createFn(ctx, req)
}

func (s *stubUsecase) Get(ctx context.Context, id string) (*domain.Assignment, error) {
	if s.getFn == nil {
		panic("Get not expected in this test")
	}
	return s.getFn(ctx, id)
}

func (s *stubUsecase) List(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error) {
	if s.listFn == nil {
		panic("List not expected in this test")
	}
	return s.listFn(ctx, f)
}

func (s *stubUsecase) Accept(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	if s.acceptFn == nil {
		panic("Accept not expected in this test")
	}
	return s.acceptFn(ctx, id, courierID)
}

func (s *stubUsecase) Reject(ctx context.Context, id string, courierID int64, reason string) (*domain.Assignment, error) {
	if s.rejectFn == nil {
		panic("Reject not expected in this test")
	}
	return s.rejectFn(ctx, id, courierID, reason)
}

func (s *stubUsecase) MarkPickedUp(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	if s.pickupFn == nil {
		panic("MarkPickedUp not expected in this test")
	}
	return s.pickupFn(ctx, id, courierID)
}

func (s *stubUsecase) MarkDelivered(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	if s.deliveredFn == nil {
		panic("MarkDelivered not expected in this test")
	}
	return s.deliveredFn(ctx, id, courierID)
}

func (s *stubUsecase) Cancel(ctx context.Context, id, actor, reason string) (*domain.Assignment, error) {
	if s.cancelFn == nil {
		panic("Cancel not expected in this test")
	}
	return s.cancelFn(ctx, id, actor, reason)
}

func (s *stubUsecase) Reassign(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	if s.reassignFn == nil {
		panic("Reassign not expected in this test")
	}
	return s.reassignFn(ctx, id, courierID)
}

func (s *stubUsecase) Redispatch(ctx context.Context, id string) (*domain.Assignment, error) {
	if s.redispatchFn == nil {
		panic("Redispatch not expected in this test")
	}
	return s.redispatchFn(ctx, id)
}

func (s *stubUsecase) ExtendTimeout(ctx context.Context, id string, by time.Duration) (*domain.Assignment, error) {
	if s.extendFn == nil {
		panic("ExtendTimeout not expected in this test")
	}
	return s.extendFn(ctx, id, by)
}

func (s *stubUsecase) UpdatePriority(ctx context.Context, id string, p domain.Priority) (*domain.Assignment, error) {
	if s.updPriorityFn == nil {
		panic("UpdatePriority not expected in this test")
	}
	return s.updPriorityFn(ctx, id, p)
}

func (s *stubUsecase) UpdateAdminNotes(ctx context.Context, id, notes string) error {
	if s.updNotesFn == nil {
		panic("UpdateAdminNotes not expected in this test")
	}
	return s.updNotesFn(ctx, id, notes)
}

func (s *stubUsecase) HandleTimeouts(ctx context.Context) (int, error) {
	if s.handleTimeoutsFn == nil {
		panic("HandleTimeouts not expected in this test")
	}
	return s.handleTimeoutsFn(ctx)
}

func newHandler(uc dispatchUsecase) *AssignmentHandler {
	return NewAssignmentHandler(testlog.New().Logger(), uc)
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleAssignment(status domain.AssignmentStatus) *domain.Assignment {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &domain.Assignment{
		ID:             testAssignmentID,
		OrderID:        "order-123",
		Status:         status,
		Priority:       domain.PriorityMedium,
		CurrentAttempt: 1,
		MaxAttempts:    3,
		Pickup:         domain.Location{Lat: 55.75, Lon: 37.62},
		Dropoff:        domain.Location{Lat: 55.70, Lon: 37.60},
		CreatedAt:      created,
	}
	if status != domain.StatusPending {
		courier := int64(42)
		assigned := created.Add(time.Second)
		a.AssignedTo = &courier
		a.AssignedAt = &assigned
	}
	if status == domain.StatusAssigned {
		deadline := created.Add(31 * time.Second)
		a.TimeoutAt = &deadline
	}
	return a
}

func TestAssignmentHandler_Create_Assigned(t *testing.T) {
	t.Parallel()

	body := `{"order_id":"order-123","pickup_location":{"lat":55.75,"lon":37.62},"dropoff_location":{"lat":55.70,"lon":37.60},"priority":"high"}`
	req := httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		createFn: func(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
			require.Equal(t, "order-123", req.OrderID)
			require.Equal(t, domain.PriorityHigh, req.Priority)
			require.InDelta(t, 55.75, req.Pickup.Lat, 1e-9)
			return sampleAssignment(domain.StatusAssigned), nil
		},
	}

	h := newHandler(uc)
	h.Create(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp assignmentResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, testAssignmentID, resp.ID)
	assert.Equal(t, "assigned", resp.Status)
	require.NotNil(t, resp.AssignedTo)
	assert.Equal(t, int64(42), *resp.AssignedTo)
}

func TestAssignmentHandler_Create_PendingAccepted(t *testing.T) {
	t.Parallel()

	body := `{"order_id":"order-123","pickup_location":{"lat":55.75,"lon":37.62},"dropoff_location":{"lat":55.70,"lon":37.60}}`
	req := httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		createFn: func(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
			return sampleAssignment(domain.StatusPending), nil
		},
	}

	h := newHandler(uc)
	h.Create(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp assignmentResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Nil(t, resp.AssignedTo)
}

func TestAssignmentHandler_Create_Invalid(t *testing.T) {
	t.Parallel()

	body := `{"order_id":""}`
	req := httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		createFn: func(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
			return nil, apperr.ErrInvalid
		},
	}

	h := newHandler(uc)
	h.Create(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "invalid input"}`, rr.Body.String())
}

func TestAssignmentHandler_Create_DuplicateOrder(t *testing.T) {
	t.Parallel()

	body := `{"order_id":"order-123","pickup_location":{"lat":55.75,"lon":37.62},"dropoff_location":{"lat":55.70,"lon":37.60}}`
	req := httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		createFn: func(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
			return nil, apperr.ErrConflict
		},
	}

	h := newHandler(uc)
	h.Create(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error": "concurrent modification conflict"}`, rr.Body.String())
}

func TestAssignmentHandler_Create_InvalidJSON(t *testing.T) {
	t.Parallel()

	body := `{"order_id":`
	req := httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		createFn: func(ctx context.Context, req dispatch.CreateRequest) (*domain.Assignment, error) {
			require.FailNow(t, "usecase.Create must not be called on invalid json")
			return nil, nil
		},
	}

	h := newHandler(uc)
	h.Create(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "invalid json"}`, rr.Body.String())
}

func TestAssignmentHandler_Get_OK(t *testing.T) {
	t.Parallel()

	req := withID(httptest.NewRequest(http.MethodGet, "/assignments/"+testAssignmentID, nil), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		getFn: func(ctx context.Context, id string) (*domain.Assignment, error) {
			require.Equal(t, testAssignmentID, id)
			a := sampleAssignment(domain.StatusAssigned)
			a.History = []domain.HistoryEntry{
				{ToStatus: domain.StatusPending, Actor: domain.ActorSystem, CreatedAt: a.CreatedAt},
				{FromStatus: domain.StatusPending, ToStatus: domain.StatusAssigned, Actor: domain.ActorSystem, Reason: "offered, attempt 1", CreatedAt: *a.AssignedAt},
			}
			return a, nil
		},
	}

	h := newHandler(uc)
	h.Get(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp assignmentResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.History, 2)
	assert.Equal(t, "pending", resp.History[1].FromStatus)
	assert.Equal(t, "assigned", resp.History[1].ToStatus)
}

func TestAssignmentHandler_Get_NotFound(t *testing.T) {
	t.Parallel()

	req := withID(httptest.NewRequest(http.MethodGet, "/assignments/"+testAssignmentID, nil), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		getFn: func(ctx context.Context, id string) (*domain.Assignment, error) {
			return nil, apperr.ErrNotFound
		},
	}

	h := newHandler(uc)
	h.Get(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error": "assignment not found"}`, rr.Body.String())
}

func TestAssignmentHandler_Get_BadID(t *testing.T) {
	t.Parallel()

	req := withID(httptest.NewRequest(http.MethodGet, "/assignments/not-a-uuid", nil), "not-a-uuid")
	rr := httptest.NewRecorder()

	h := newHandler(&stubUsecase{})
	h.Get(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "invalid assignment id"}`, rr.Body.String())
}

func TestAssignmentHandler_Accept_OK(t *testing.T) {
	t.Parallel()

	body := `{"courier_id":42}`
	req := withID(httptest.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/accept", strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		acceptFn: func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
			require.Equal(t, testAssignmentID, id)
			require.Equal(t, int64(42), courierID)
			a := sampleAssignment(domain.StatusAccepted)
			accepted := a.AssignedAt.Add(10 * time.Second)
			a.AcceptedAt = &accepted
			return a, nil
		},
	}

	h := newHandler(uc)
	h.Accept(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp assignmentResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp.Status)
	require.NotNil(t, resp.ResponseTimeSec)
	assert.InDelta(t, 10.0, *resp.ResponseTimeSec, 1e-9)
}

func TestAssignmentHandler_Accept_Expired(t *testing.T) {
	t.Parallel()

	body := `{"courier_id":42}`
	req := withID(httptest.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/accept", strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		acceptFn: func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
			return nil, apperr.ErrExpired
		},
	}

	h := newHandler(uc)
	h.Accept(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error": "assignment expired"}`, rr.Body.String())
}

func TestAssignmentHandler_Accept_MissingCourier(t *testing.T) {
	t.Parallel()

	body := `{"reason":"whatever"}`
	req := withID(httptest.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/accept", strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	h := newHandler(&stubUsecase{})
	h.Accept(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "courier_id required"}`, rr.Body.String())
}

func TestAssignmentHandler_Reject_PassesReason(t *testing.T) {
	t.Parallel()

	body := `{"courier_id":42,"reason":"too far"}`
	req := withID(httptest.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/reject", strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		rejectFn: func(ctx context.Context, id string, courierID int64, reason string) (*domain.Assignment, error) {
			require.Equal(t, int64(42), courierID)
			require.Equal(t, "too far", reason)
			return sampleAssignment(domain.StatusPending), nil
		},
	}

	h := newHandler(uc)
	h.Reject(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAssignmentHandler_Delivered_LostRace(t *testing.T) {
	t.Parallel()

	body := `{"courier_id":42}`
	req := withID(httptest.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/delivered", strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		deliveredFn: func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
			return nil, apperr.ErrConflict
		},
	}

	h := newHandler(uc)
	h.Delivered(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error": "concurrent modification conflict"}`, rr.Body.String())
}

func TestAssignmentHandler_Cancel_Customer(t *testing.T) {
	t.Parallel()

	body := `{"reason":"changed my mind"}`
	req := withID(httptest.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/cancel", strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		cancelFn: func(ctx context.Context, id, actor, reason string) (*domain.Assignment, error) {
			require.Equal(t, domain.ActorCustomer, actor)
			require.Equal(t, "changed my mind", reason)
			a := sampleAssignment(domain.StatusCancelled)
			return a, nil
		},
	}

	h := newHandler(uc)
	h.Cancel(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAssignmentHandler_Cancel_InTransit(t *testing.T) {
	t.Parallel()

	body := `{}`
	req := withID(httptest.NewRequest(http.MethodPost, "/assignments/"+testAssignmentID+"/cancel", strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		cancelFn: func(ctx context.Context, id, actor, reason string) (*domain.Assignment, error) {
			return nil, apperr.ErrInvalidTransition
		},
	}

	h := newHandler(uc)
	h.Cancel(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error": "invalid state transition"}`, rr.Body.String())
}

func TestAssignmentHandler_AdminUpdate_ForceAssign(t *testing.T) {
	t.Parallel()

	body := `{"action":"forceAssign","courier_id":7}`
	req := withID(httptest.NewRequest(http.MethodPut, "/assignments/"+testAssignmentID, strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		reassignFn: func(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
			require.Equal(t, int64(7), courierID)
			a := sampleAssignment(domain.StatusAssigned)
			courier := int64(7)
			a.AssignedTo = &courier
			return a, nil
		},
	}

	h := newHandler(uc)
	h.AdminUpdate(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp assignmentResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotNil(t, resp.AssignedTo)
	assert.Equal(t, int64(7), *resp.AssignedTo)
}

func TestAssignmentHandler_AdminUpdate_ForceAssignMissingCourier(t *testing.T) {
	t.Parallel()

	body := `{"action":"forceAssign"}`
	req := withID(httptest.NewRequest(http.MethodPut, "/assignments/"+testAssignmentID, strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	h := newHandler(&stubUsecase{})
	h.AdminUpdate(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "courier_id required"}`, rr.Body.String())
}

func TestAssignmentHandler_AdminUpdate_Reassign(t *testing.T) {
	t.Parallel()

	body := `{"action":"reassign"}`
	req := withID(httptest.NewRequest(http.MethodPut, "/assignments/"+testAssignmentID, strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		redispatchFn: func(ctx context.Context, id string) (*domain.Assignment, error) {
			require.Equal(t, testAssignmentID, id)
			return sampleAssignment(domain.StatusAssigned), nil
		},
	}

	h := newHandler(uc)
	h.AdminUpdate(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAssignmentHandler_AdminUpdate_ExtendTimeout(t *testing.T) {
	t.Parallel()

	body := `{"action":"extendTimeout","extend_by_seconds":60}`
	req := withID(httptest.NewRequest(http.MethodPut, "/assignments/"+testAssignmentID, strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		extendFn: func(ctx context.Context, id string, by time.Duration) (*domain.Assignment, error) {
			require.Equal(t, time.Minute, by)
			return sampleAssignment(domain.StatusAssigned), nil
		},
	}

	h := newHandler(uc)
	h.AdminUpdate(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAssignmentHandler_AdminUpdate_UpdateNotes(t *testing.T) {
	t.Parallel()

	body := `{"action":"updateNotes","notes":"call the customer first"}`
	req := withID(httptest.NewRequest(http.MethodPut, "/assignments/"+testAssignmentID, strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		updNotesFn: func(ctx context.Context, id, notes string) error {
			require.Equal(t, "call the customer first", notes)
			return nil
		},
		getFn: func(ctx context.Context, id string) (*domain.Assignment, error) {
			a := sampleAssignment(domain.StatusAssigned)
			a.AdminNotes = "call the customer first"
			return a, nil
		},
	}

	h := newHandler(uc)
	h.AdminUpdate(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp assignmentResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "call the customer first", resp.AdminNotes)
}

func TestAssignmentHandler_AdminUpdate_UnknownAction(t *testing.T) {
	t.Parallel()

	body := `{"action":"launch"}`
	req := withID(httptest.NewRequest(http.MethodPut, "/assignments/"+testAssignmentID, strings.NewReader(body)), testAssignmentID)
	rr := httptest.NewRecorder()

	h := newHandler(&stubUsecase{})
	h.AdminUpdate(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "unknown action"}`, rr.Body.String())
}

func TestAssignmentHandler_Bulk_HandleTimeouts(t *testing.T) {
	t.Parallel()

	body := `{"action":"handleTimeouts"}`
	req := httptest.NewRequest(http.MethodPost, "/assignments/bulk", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		handleTimeoutsFn: func(ctx context.Context) (int, error) {
			return 3, nil
		},
	}

	h := newHandler(uc)
	h.Bulk(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"released": 3}`, rr.Body.String())
}

func TestAssignmentHandler_Bulk_ReassignPerID(t *testing.T) {
	t.Parallel()

	otherID := "9d1f9c02-41f4-4f06-8f7e-02a6f9f6d001"
	body := `{"action":"bulkReassign","ids":["` + testAssignmentID + `","` + otherID + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/assignments/bulk", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		redispatchFn: func(ctx context.Context, id string) (*domain.Assignment, error) {
			if id == otherID {
				return nil, apperr.ErrNoCandidate
			}
			return sampleAssignment(domain.StatusAssigned), nil
		},
	}

	h := newHandler(uc)
	h.Bulk(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp bulkResultResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "assigned", resp.Results[testAssignmentID])
	assert.Equal(t, "error: no candidate available", resp.Results[otherID])
}

func TestAssignmentHandler_Bulk_UpdateStatusCancelledOnly(t *testing.T) {
	t.Parallel()

	body := `{"action":"bulkUpdateStatus","status":"delivered","ids":["` + testAssignmentID + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/assignments/bulk", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h := newHandler(&stubUsecase{})
	h.Bulk(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "unsupported bulk status"}`, rr.Body.String())
}

func TestAssignmentHandler_Bulk_CancelMany(t *testing.T) {
	t.Parallel()

	body := `{"action":"bulkUpdateStatus","status":"cancelled","reason":"restaurant closed","ids":["` + testAssignmentID + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/assignments/bulk", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		cancelFn: func(ctx context.Context, id, actor, reason string) (*domain.Assignment, error) {
			require.Equal(t, domain.ActorAdmin, actor)
			require.Equal(t, "restaurant closed", reason)
			return sampleAssignment(domain.StatusCancelled), nil
		},
	}

	h := newHandler(uc)
	h.Bulk(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp bulkResultResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "cancelled", resp.Results[testAssignmentID])
}

func TestAssignmentHandler_List_ParsesFilters(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/assignments?status=assigned&priority=high&assignedTo=42&page=2&limit=50", nil)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		listFn: func(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error) {
			require.NotNil(t, f.Status)
			require.Equal(t, domain.StatusAssigned, *f.Status)
			require.NotNil(t, f.Priority)
			require.Equal(t, domain.PriorityHigh, *f.Priority)
			require.NotNil(t, f.AssignedTo)
			require.Equal(t, int64(42), *f.AssignedTo)
			require.Equal(t, 2, f.Page)
			require.Equal(t, 50, f.Limit)
			return []domain.Assignment{*sampleAssignment(domain.StatusAssigned)},
				domain.StatusCounts{domain.StatusAssigned: 1, domain.StatusPending: 4}, nil
		},
	}

	h := newHandler(uc)
	h.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp listAssignmentsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, int64(4), resp.Counts["pending"])
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 50, resp.Limit)
}

func TestAssignmentHandler_List_BadAssignedTo(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/assignments?assignedTo=abc", nil)
	rr := httptest.NewRecorder()

	h := newHandler(&stubUsecase{})
	h.List(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "invalid assignedTo"}`, rr.Body.String())
}

func TestAssignmentHandler_List_InvalidStatusFilter(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/assignments?status=bogus", nil)
	rr := httptest.NewRecorder()

	uc := &stubUsecase{
		listFn: func(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error) {
			return nil, nil, apperr.ErrInvalid
		},
	}

	h := newHandler(uc)
	h.List(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "invalid input"}`, rr.Body.String())
}
