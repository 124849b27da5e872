package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/selector"
)

// Service orchestrates the assignment lifecycle: candidate selection, the
// offer/accept/reject cycle, timeout recovery and admin overrides. All writes
// go through the store's conditional transition, so concurrent actors never
// need locks; whoever's write lands first wins and the loser gets a conflict.
type Service struct {
	store     assignmentStore
	directory courierDirectory
	notifier  Notifier
	cfg       config.Dispatch
	logger    logx.Logger
	metrics   *Metrics
	now       func() time.Time
	newID     func() string
}

// NewService - creates a new dispatch Service.
func NewService(store assignmentStore, directory courierDirectory, notifier Notifier, cfg config.Dispatch, logger logx.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// WithMetrics attaches business counters to the service.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// transition is the single choke point for conditional writes; every
// successful state change and every lost race is counted here.
func (s *Service) transition(ctx context.Context, t domain.Transition, now time.Time) (*domain.Assignment, error) {
	got, err := s.store.Transition(ctx, t, now)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.metrics.conflict()
		}
		return nil, err
	}
	s.metrics.transition(string(t.NewStatus))
	return got, nil
}

func (s *Service) weights() selector.Weights {
	return selector.Weights{
		Distance:          s.cfg.DistanceWeight,
		Acceptance:        s.cfg.AcceptanceWeight,
		MaxRadiusKm:       s.cfg.MaxRadiusKm,
		UrgentRadiusBoost: s.cfg.UrgentRadiusBoost,
	}
}

// CreateRequest carries the data to open a new assignment for an order.
type CreateRequest struct {
	OrderID      string
	Priority     domain.Priority
	Pickup       domain.Location
	Dropoff      domain.Location
	OrderSummary string
}

func (r CreateRequest) normalize() (CreateRequest, error) {
	r.OrderID = strings.TrimSpace(r.OrderID)
	if r.OrderID == "" {
		return r, fmt.Errorf("%w: empty order id", apperr.ErrInvalid)
	}
	if r.Priority == "" {
		r.Priority = domain.PriorityMedium
	}
	if !r.Priority.Valid() {
		return r, fmt.Errorf("%w: unknown priority %q", apperr.ErrInvalid, r.Priority)
	}
	if !r.Pickup.Valid() || !r.Dropoff.Valid() {
		return r, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}
	return r, nil
}

// Create opens an assignment and immediately tries to dispatch it. When no
// candidate is available the assignment stays pending for the retry sweep and
// is returned as-is.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Assignment, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	a := &domain.Assignment{
		ID:           s.newID(),
		OrderID:      req.OrderID,
		Status:       domain.StatusPending,
		Priority:     req.Priority,
		MaxAttempts:  s.cfg.MaxAttempts,
		Pickup:       req.Pickup,
		Dropoff:      req.Dropoff,
		OrderSummary: req.OrderSummary,
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.metrics.created()

	assigned, err := s.tryAssign(ctx, a, nil)
	switch {
	case err == nil:
		return assigned, nil
	case errors.Is(err, apperr.ErrNoCandidate):
		s.logger.Info("no candidate available, assignment left pending",
			logx.String("assignment_id", a.ID),
			logx.String("order_id", a.OrderID),
		)
		return a, nil
	case errors.Is(err, apperr.ErrConflict):
		// another actor moved it already, return whatever it became
		return s.store.Get(ctx, a.ID)
	default:
		return nil, err
	}
}

// tryAssign ranks the current directory snapshot and offers the assignment to
// candidates in order until one conditional write lands. The full ranking is
// persisted as the candidate queue for this attempt cycle. Couriers whose
// load fills up between ranking and the write are skipped, not treated as
// errors.
func (s *Service) tryAssign(ctx context.Context, a *domain.Assignment, excluded map[int64]struct{}) (*domain.Assignment, error) {
	couriers, err := s.directory.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available couriers: %w", err)
	}

	candidates := selector.Rank(a.Pickup, couriers, excluded, a.Priority, s.weights(), s.cfg.CandidateLimit)
	if len(candidates) == 0 {
		return nil, apperr.ErrNoCandidate
	}

	queue := selector.IDs(candidates)
	for _, c := range candidates {
		got, err := s.offer(ctx, a, c.CourierID, queue, c.DistanceKm)
		if err != nil {
			if errors.Is(err, apperr.ErrCourierBusy) {
				continue
			}
			return nil, err
		}
		return got, nil
	}
	return nil, apperr.ErrNoCandidate
}

// offer lands one pending -> assigned conditional write. The attempt counter
// is untouched here: it counts releases, not offers, so the first courier
// holds the offer at attempt 0.
func (s *Service) offer(ctx context.Context, a *domain.Assignment, courierID int64, queue []int64, distanceKm float64) (*domain.Assignment, error) {
	now := s.now()
	timeout := now.Add(s.cfg.ResponseTimeout)
	got, err := s.transition(ctx, domain.Transition{
		ID:              a.ID,
		ExpectedStatus:  domain.StatusPending,
		NewStatus:       domain.StatusAssigned,
		NewCourier:      &courierID,
		TimeoutAt:       &timeout,
		CandidateQueue:  queue,
		EnforceCapacity: true,
		Actor:           domain.ActorSystem,
		Reason:          "offered",
	}, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment offered",
		logx.String("event", "assignment_offered"),
		logx.String("assignment_id", a.ID),
		logx.String("order_id", a.OrderID),
		logx.Int64("courier_id", courierID),
		logx.Float64("distance_km", distanceKm),
		logx.Int("attempt", got.CurrentAttempt),
		logx.Time("timeout_at", timeout),
	)
	s.notify(ctx, got)
	return got, nil
}

// offerNext walks the queue ranked for the current attempt cycle, starting
// after the courier who just gave the assignment up, so a single rejection
// does not recompute the full ranking. When the queue is spent the selector
// runs again, excluding every courier already queued this cycle.
func (s *Service) offerNext(ctx context.Context, a *domain.Assignment, lastCourier int64) (*domain.Assignment, error) {
	for _, id := range remainingCandidates(a.CandidateQueue, lastCourier) {
		c, err := s.directory.Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !c.Eligible() {
			continue
		}

		got, err := s.offer(ctx, a, id, a.CandidateQueue, c.Location.DistanceKm(a.Pickup))
		if err != nil {
			if errors.Is(err, apperr.ErrCourierBusy) {
				continue
			}
			return nil, err
		}
		return got, nil
	}

	excluded := make(map[int64]struct{}, len(a.CandidateQueue)+1)
	for _, id := range a.CandidateQueue {
		excluded[id] = struct{}{}
	}
	excluded[lastCourier] = struct{}{}
	return s.tryAssign(ctx, a, excluded)
}

// remainingCandidates returns the queued ids after the given courier. A
// courier outside the queue (force-assigned by an admin) leaves the whole
// queue untried.
func remainingCandidates(queue []int64, lastCourier int64) []int64 {
	for i, id := range queue {
		if id == lastCourier {
			return queue[i+1:]
		}
	}
	return queue
}

// Accept confirms the offer. Only the courier currently holding the offer may
// accept, and only while the response window is open. The precheck catches an
// already-expired offer with the right error early; the window is guarded
// again inside the conditional write, so a deadline passing mid-request still
// rejects the accept.
func (s *Service) Accept(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if a.Status == domain.StatusAssigned && a.Expired(now) {
		return nil, apperr.ErrExpired
	}

	got, err := s.transition(ctx, domain.Transition{
		ID:                id,
		ExpectedStatus:    domain.StatusAssigned,
		ExpectedCourier:   &courierID,
		NewStatus:         domain.StatusAccepted,
		NewCourier:        &courierID,
		RequireNotExpired: true,
		Actor:             domain.ActorCourier,
		Reason:            "accepted",
	}, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment accepted",
		logx.String("event", "assignment_accepted"),
		logx.String("assignment_id", id),
		logx.Int64("courier_id", courierID),
	)
	s.notify(ctx, got)
	return got, nil
}

// Reject declines the offer and immediately re-dispatches to the next
// candidate, skipping the rejecting courier. The release charges one attempt;
// when the budget is spent the assignment fails instead.
func (s *Service) Reject(ctx context.Context, id string, courierID int64, reason string) (*domain.Assignment, error) {
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "rejected"
	}

	released, err := s.transition(ctx, domain.Transition{
		ID:               id,
		ExpectedStatus:   domain.StatusAssigned,
		ExpectedCourier:  &courierID,
		NewStatus:        domain.StatusPending,
		IncrementAttempt: true,
		Actor:            domain.ActorCourier,
		Reason:           reason,
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment rejected",
		logx.String("event", "assignment_rejected"),
		logx.String("assignment_id", id),
		logx.Int64("courier_id", courierID),
		logx.Int("attempt", released.CurrentAttempt),
	)
	s.notify(ctx, released)
	return s.afterRelease(ctx, released, courierID)
}

// afterRelease decides the fate of a freshly released assignment: fail it
// when the attempt budget is spent, otherwise offer it to the next queued
// candidate.
func (s *Service) afterRelease(ctx context.Context, a *domain.Assignment, lastCourier int64) (*domain.Assignment, error) {
	if a.CurrentAttempt >= a.MaxAttempts {
		return s.failExhausted(ctx, a)
	}

	next, err := s.offerNext(ctx, a, lastCourier)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, apperr.ErrNoCandidate):
		return a, nil
	case errors.Is(err, apperr.ErrConflict):
		return s.store.Get(ctx, a.ID)
	default:
		return nil, err
	}
}

func (s *Service) failExhausted(ctx context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	failed, err := s.transition(ctx, domain.Transition{
		ID:             a.ID,
		ExpectedStatus: domain.StatusPending,
		NewStatus:      domain.StatusFailed,
		Actor:          domain.ActorSystem,
		Reason:         "no courier accepted the order",
	}, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Warn("assignment failed",
		logx.String("event", "assignment_failed"),
		logx.String("assignment_id", a.ID),
		logx.Int("attempts", failed.CurrentAttempt),
	)
	s.notify(ctx, failed)
	return failed, nil
}

// MarkPickedUp records that the courier collected the order.
func (s *Service) MarkPickedUp(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	got, err := s.transition(ctx, domain.Transition{
		ID:              id,
		ExpectedStatus:  domain.StatusAccepted,
		ExpectedCourier: &courierID,
		NewStatus:       domain.StatusInTransit,
		NewCourier:      &courierID,
		Actor:           domain.ActorCourier,
		Reason:          "picked up",
	}, s.now())
	if err != nil {
		return nil, err
	}
	s.notify(ctx, got)
	return got, nil
}

// MarkDelivered completes the assignment. The courier slot is freed, the
// record stays for the audit trail.
func (s *Service) MarkDelivered(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	got, err := s.transition(ctx, domain.Transition{
		ID:              id,
		ExpectedStatus:  domain.StatusInTransit,
		ExpectedCourier: &courierID,
		NewStatus:       domain.StatusDelivered,
		Actor:           domain.ActorCourier,
		Reason:          "delivered",
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment delivered",
		logx.String("event", "assignment_delivered"),
		logx.String("assignment_id", id),
		logx.Int64("courier_id", courierID),
	)
	s.notify(ctx, got)
	return got, nil
}

// Cancel aborts a non-started assignment on behalf of the given actor.
// Cancellation from in_transit is not allowed; the order is already moving.
func (s *Service) Cancel(ctx context.Context, id, actor, reason string) (*domain.Assignment, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	got, err := s.transition(ctx, domain.Transition{
		ID:              id,
		ExpectedStatus:  a.Status,
		ExpectedCourier: a.AssignedTo,
		NewStatus:       domain.StatusCancelled,
		Actor:           actor,
		Reason:          reason,
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment cancelled",
		logx.String("event", "assignment_cancelled"),
		logx.String("assignment_id", id),
		logx.String("actor", actor),
	)
	s.notify(ctx, got)
	return got, nil
}

// CancelByOrder cancels the live assignment for an order. Used when the order
// itself is cancelled upstream.
func (s *Service) CancelByOrder(ctx context.Context, orderID, actor, reason string) (*domain.Assignment, error) {
	a, err := s.store.FindActiveByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.Cancel(ctx, a.ID, actor, reason)
}

// Reassign forces the assignment onto a specific courier, overriding the
// selector. Allowed from pending and assigned; the attempt budget is not
// charged for admin overrides.
func (s *Service) Reassign(ctx context.Context, id string, courierID int64) (*domain.Assignment, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusPending && a.Status != domain.StatusAssigned {
		return nil, apperr.ErrInvalidTransition
	}
	if _, err := s.directory.Get(ctx, courierID); err != nil {
		return nil, err
	}

	now := s.now()
	timeout := now.Add(s.cfg.ResponseTimeout)
	got, err := s.transition(ctx, domain.Transition{
		ID:              id,
		ExpectedStatus:  a.Status,
		ExpectedCourier: a.AssignedTo,
		NewStatus:       domain.StatusAssigned,
		NewCourier:      &courierID,
		TimeoutAt:       &timeout,
		EnforceCapacity: true,
		Actor:           domain.ActorAdmin,
		Reason:          "force reassigned",
	}, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment force reassigned",
		logx.String("event", "assignment_reassigned"),
		logx.String("assignment_id", id),
		logx.Int64("courier_id", courierID),
	)
	s.notify(ctx, got)
	return got, nil
}

// Redispatch releases an active offer and runs selection again, excluding the
// courier who held it. A pending assignment is simply re-offered.
func (s *Service) Redispatch(ctx context.Context, id string) (*domain.Assignment, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case domain.StatusPending:
		// reachable when an earlier pending -> failed write never landed
		if a.CurrentAttempt >= a.MaxAttempts {
			return s.failExhausted(ctx, a)
		}
		return s.tryAssign(ctx, a, nil)
	case domain.StatusAssigned:
		released, err := s.transition(ctx, domain.Transition{
			ID:              id,
			ExpectedStatus:  domain.StatusAssigned,
			ExpectedCourier: a.AssignedTo,
			NewStatus:       domain.StatusPending,
			Actor:           domain.ActorAdmin,
			Reason:          "redispatched",
		}, s.now())
		if err != nil {
			return nil, err
		}
		s.notify(ctx, released)

		var last int64
		if a.AssignedTo != nil {
			last = *a.AssignedTo
		}
		return s.afterRelease(ctx, released, last)
	default:
		return nil, apperr.ErrInvalidTransition
	}
}

// ExtendTimeout pushes the response window forward on an active offer.
func (s *Service) ExtendTimeout(ctx context.Context, id string, by time.Duration) (*domain.Assignment, error) {
	if by <= 0 {
		by = s.cfg.ExtendBy
	}
	return s.store.ExtendTimeout(ctx, id, by, s.now())
}

// UpdatePriority changes the priority of a live assignment.
func (s *Service) UpdatePriority(ctx context.Context, id string, p domain.Priority) (*domain.Assignment, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", apperr.ErrInvalid, p)
	}
	return s.store.UpdatePriority(ctx, id, p)
}

// UpdateAdminNotes replaces the operator notes on an assignment.
func (s *Service) UpdateAdminNotes(ctx context.Context, id, notes string) error {
	return s.store.UpdateAdminNotes(ctx, id, notes)
}

// HandleTimeouts releases assigned records whose response window has passed
// and re-dispatches or fails them. Safe to run concurrently with courier
// responses and with itself: a release whose conditional write loses is
// simply skipped.
func (s *Service) HandleTimeouts(ctx context.Context) (int, error) {
	expired, err := s.store.FindExpired(ctx, s.now(), s.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range expired {
		a := expired[i]
		got, err := s.transition(ctx, domain.Transition{
			ID:               a.ID,
			ExpectedStatus:   domain.StatusAssigned,
			ExpectedCourier:  a.AssignedTo,
			NewStatus:        domain.StatusPending,
			IncrementAttempt: true,
			Actor:            domain.ActorSystem,
			Reason:           "response timeout",
		}, s.now())
		if err != nil {
			if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
				// the courier responded between the read and the write
				continue
			}
			return released, err
		}
		released++
		s.metrics.timeout()

		s.logger.Info("assignment released by timeout",
			logx.String("event", "assignment_timeout"),
			logx.String("assignment_id", a.ID),
			logx.Int("attempt", got.CurrentAttempt),
		)
		s.notify(ctx, got)

		var last int64
		if a.AssignedTo != nil {
			last = *a.AssignedTo
		}
		if _, err := s.afterRelease(ctx, got, last); err != nil {
			s.logger.Error("redispatch after timeout failed",
				logx.String("assignment_id", a.ID),
				logx.Any("err", err),
			)
		}
	}
	return released, nil
}

// AssignPending retries pending assignments that were left without a courier
// because nobody was available at creation time.
func (s *Service) AssignPending(ctx context.Context) (int, error) {
	pending, err := s.store.FindUnassigned(ctx, s.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for i := range pending {
		_, err := s.tryAssign(ctx, &pending[i], nil)
		if err != nil {
			if errors.Is(err, apperr.ErrNoCandidate) ||
				errors.Is(err, apperr.ErrConflict) ||
				errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return assigned, err
		}
		assigned++
	}
	return assigned, nil
}

// Get returns an assignment with its full history.
func (s *Service) Get(ctx context.Context, id string) (*domain.Assignment, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of assignments plus per-status totals.
func (s *Service) List(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalid, *f.Status)
	}
	if f.Priority != nil && !f.Priority.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown priority %q", apperr.ErrInvalid, *f.Priority)
	}
	return s.store.List(ctx, f)
}

func (s *Service) notify(ctx context.Context, a *domain.Assignment) {
	if s.notifier == nil {
		return
	}
	n := domain.Notification{
		AssignmentID:       a.ID,
		OrderID:            a.OrderID,
		Status:             a.Status,
		Priority:           a.Priority,
		CourierID:          a.AssignedTo,
		RestaurantLocation: a.Pickup,
		CustomerLocation:   a.Dropoff,
		OrderSummary:       a.OrderSummary,
		TimeoutAt:          a.TimeoutAt,
	}
	if err := s.notifier.Publish(ctx, n); err != nil {
		s.logger.Error("notification publish failed",
			logx.String("assignment_id", a.ID),
			logx.Any("err", err),
		)
	}
}
