package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// AssignmentRepo persists assignments and their append-only history log.
// All status changes go through Transition: a single conditional UPDATE whose
// affected-row count tells the caller whether it won the race.
type AssignmentRepo struct {
	db *pgxpool.Pool
}

// NewAssignmentRepo creates a new AssignmentRepo.
func NewAssignmentRepo(db *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

const assignmentColumns = `
    id, order_id, status, priority, assigned_to, candidate_queue,
    current_attempt, max_attempts, timeout_at,
    pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
    order_summary, admin_notes,
    created_at, assigned_at, accepted_at, picked_up_at, delivered_at, cancelled_at`

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(
		&a.ID, &a.OrderID, &a.Status, &a.Priority, &a.AssignedTo, &a.CandidateQueue,
		&a.CurrentAttempt, &a.MaxAttempts, &a.TimeoutAt,
		&a.Pickup.Lat, &a.Pickup.Lon, &a.Dropoff.Lat, &a.Dropoff.Lon,
		&a.OrderSummary, &a.AdminNotes,
		&a.CreatedAt, &a.AssignedAt, &a.AcceptedAt, &a.PickedUpAt, &a.DeliveredAt, &a.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new pending assignment with its initial history entry.
// A second non-terminal assignment for the same order violates the partial
// unique index and is reported as a conflict.
func (r *AssignmentRepo) Create(ctx context.Context, a *domain.Assignment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO assignments (
            id, order_id, status, priority, candidate_queue,
            current_attempt, max_attempts,
            pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
            order_summary, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `, a.ID, a.OrderID, a.Status, a.Priority, a.CandidateQueue,
		a.CurrentAttempt, a.MaxAttempts,
		a.Pickup.Lat, a.Pickup.Lon, a.Dropoff.Lat, a.Dropoff.Lon,
		a.OrderSummary, a.CreatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return apperr.ErrConflict
		}
		return fmt.Errorf("insert assignment %q: %w", a.ID, err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO assignment_history (assignment_id, from_status, to_status, actor, reason, created_at)
        VALUES ($1, '', $2, $3, $4, $5)
    `, a.ID, a.Status, domain.ActorSystem, "created", a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert assignment history %q: %w", a.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get returns an assignment with its history, oldest entry first.
func (r *AssignmentRepo) Get(ctx context.Context, id string) (*domain.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("get assignment %q: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `
        SELECT assignment_id, from_status, to_status, actor, reason, created_at
        FROM assignment_history
        WHERE assignment_id = $1
        ORDER BY id
    `, id)
	if err != nil {
		return nil, fmt.Errorf("get assignment history %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.AssignmentID, &h.FromStatus, &h.ToStatus, &h.Actor, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		a.History = append(a.History, h)
	}
	return a, rows.Err()
}

// FindActiveByOrder returns the live assignment for an order, if any. At most
// one exists thanks to the partial unique index on order_id.
func (r *AssignmentRepo) FindActiveByOrder(ctx context.Context, orderID string) (*domain.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
         WHERE order_id = $1 AND status NOT IN ('delivered', 'cancelled', 'failed')`, orderID))
	if err != nil {
		if IsNotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find active assignment for order %q: %w", orderID, err)
	}
	return a, nil
}

// Transition applies one conditional state change. The UPDATE lands only if
// the persisted status and assigned courier still match the caller's
// expectations (and, when requested, the target courier has a free slot and
// the response window is still open); a miss is classified by a follow-up
// read. The history row is appended in the same transaction so either the
// full update lands or none of it does.
func (r *AssignmentRepo) Transition(ctx context.Context, t domain.Transition, now time.Time) (*domain.Assignment, error) {
	if !domain.CanTransition(t.ExpectedStatus, t.NewStatus) {
		return nil, apperr.ErrInvalidTransition
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Two capacity-guarded assigns racing onto the same courier would each
	// count the other's uncommitted row as absent and both pass the guard.
	// Locking the courier row makes the loser wait, so its count subquery
	// re-evaluates against the winner's committed assignment.
	if t.EnforceCapacity && t.NewCourier != nil {
		var locked int64
		if err := tx.QueryRow(ctx,
			`SELECT id FROM couriers WHERE id = $1 FOR UPDATE`, *t.NewCourier,
		).Scan(&locked); err != nil {
			if IsNotFound(err) {
				return nil, apperr.ErrNotFound
			}
			return nil, fmt.Errorf("lock courier %d: %w", *t.NewCourier, err)
		}
	}

	attemptInc := 0
	if t.IncrementAttempt {
		attemptInc = 1
	}

	a, err := scanAssignment(tx.QueryRow(ctx, `
        UPDATE assignments SET
            status          = $2,
            assigned_to     = $3,
            timeout_at      = $4,
            current_attempt = current_attempt + $5,
            candidate_queue = COALESCE($6, candidate_queue),
            assigned_at     = CASE WHEN $2 = 'assigned'   THEN COALESCE(assigned_at, $10)  ELSE assigned_at  END,
            accepted_at     = CASE WHEN $2 = 'accepted'   THEN COALESCE(accepted_at, $10)  ELSE accepted_at  END,
            picked_up_at    = CASE WHEN $2 = 'in_transit' THEN COALESCE(picked_up_at, $10) ELSE picked_up_at END,
            delivered_at    = CASE WHEN $2 = 'delivered'  THEN COALESCE(delivered_at, $10) ELSE delivered_at END,
            cancelled_at    = CASE WHEN $2 = 'cancelled'  THEN COALESCE(cancelled_at, $10) ELSE cancelled_at END
        WHERE id = $1
          AND status = $7
          AND assigned_to IS NOT DISTINCT FROM $8
          AND (NOT $9::boolean OR (
                SELECT COUNT(*) FROM assignments held
                WHERE held.assigned_to = $3
                  AND held.id <> $1
                  AND held.status IN ('assigned', 'accepted', 'in_transit')
              ) < (SELECT max_active FROM couriers WHERE id = $3))
          AND (NOT $11::boolean OR timeout_at IS NULL OR timeout_at > $10)
        RETURNING `+assignmentColumns,
		t.ID, t.NewStatus, t.NewCourier, t.TimeoutAt, attemptInc, t.CandidateQueue,
		t.ExpectedStatus, t.ExpectedCourier, t.EnforceCapacity, now, t.RequireNotExpired))
	if err != nil {
		if IsNotFound(err) {
			return nil, r.classifyMiss(ctx, t, now)
		}
		return nil, fmt.Errorf("transition assignment %q: %w", t.ID, err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO assignment_history (assignment_id, from_status, to_status, actor, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, t.ID, t.ExpectedStatus, t.NewStatus, t.Actor, t.Reason, now)
	if err != nil {
		return nil, fmt.Errorf("append assignment history %q: %w", t.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return a, nil
}

// classifyMiss distinguishes why a conditional write affected zero rows.
func (r *AssignmentRepo) classifyMiss(ctx context.Context, t domain.Transition, now time.Time) error {
	var (
		status     domain.AssignmentStatus
		assignedTo *int64
		timeoutAt  *time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT status, assigned_to, timeout_at FROM assignments WHERE id = $1`, t.ID,
	).Scan(&status, &assignedTo, &timeoutAt)
	if err != nil {
		if IsNotFound(err) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("classify transition miss %q: %w", t.ID, err)
	}

	if status != t.ExpectedStatus || !sameCourier(assignedTo, t.ExpectedCourier) {
		return apperr.ErrConflict
	}
	if t.RequireNotExpired && timeoutAt != nil && !now.Before(*timeoutAt) {
		return apperr.ErrExpired
	}
	if t.EnforceCapacity {
		// state matched, so the capacity re-check is what rejected the write
		return apperr.ErrCourierBusy
	}
	return apperr.ErrConflict
}

func sameCourier(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FindExpired returns assigned records whose response window has passed,
// most urgent first so high-priority orders are reassigned before the rest.
func (r *AssignmentRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+assignmentColumns+`
        FROM assignments
        WHERE status = 'assigned' AND timeout_at < $1
        ORDER BY
            CASE priority
                WHEN 'urgent' THEN 4
                WHEN 'high'   THEN 3
                WHEN 'medium' THEN 2
                ELSE 1
            END DESC,
            timeout_at ASC
        LIMIT $2
    `, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find expired assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// FindUnassigned returns pending assignments with attempts left, most urgent
// first. Used to retry orders left pending because no candidate was available.
func (r *AssignmentRepo) FindUnassigned(ctx context.Context, limit int) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+assignmentColumns+`
        FROM assignments
        WHERE status = 'pending' AND current_attempt < max_attempts
        ORDER BY
            CASE priority
                WHEN 'urgent' THEN 4
                WHEN 'high'   THEN 3
                WHEN 'medium' THEN 2
                ELSE 1
            END DESC,
            created_at ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("find unassigned assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func collectAssignments(rows pgx.Rows) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ExtendTimeout pushes timeout_at forward without changing status or attempt
// count. Conditional on the record still being assigned.
func (r *AssignmentRepo) ExtendTimeout(ctx context.Context, id string, by time.Duration, now time.Time) (*domain.Assignment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a, err := scanAssignment(tx.QueryRow(ctx, `
        UPDATE assignments
        SET timeout_at = timeout_at + $2
        WHERE id = $1 AND status = 'assigned'
        RETURNING `+assignmentColumns,
		id, by))
	if err != nil {
		if IsNotFound(err) {
			if exists, exErr := r.exists(ctx, id); exErr != nil {
				return nil, exErr
			} else if !exists {
				return nil, apperr.ErrNotFound
			}
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("extend timeout %q: %w", id, err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO assignment_history (assignment_id, from_status, to_status, actor, reason, created_at)
        VALUES ($1, 'assigned', 'assigned', $2, $3, $4)
    `, id, domain.ActorAdmin, fmt.Sprintf("timeout extended by %s", by), now)
	if err != nil {
		return nil, fmt.Errorf("append assignment history %q: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return a, nil
}

// UpdatePriority changes the priority of a non-terminal assignment.
func (r *AssignmentRepo) UpdatePriority(ctx context.Context, id string, p domain.Priority) (*domain.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, `
        UPDATE assignments
        SET priority = $2
        WHERE id = $1 AND status NOT IN ('delivered', 'cancelled', 'failed')
        RETURNING `+assignmentColumns,
		id, p))
	if err != nil {
		if IsNotFound(err) {
			if exists, exErr := r.exists(ctx, id); exErr != nil {
				return nil, exErr
			} else if !exists {
				return nil, apperr.ErrNotFound
			}
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("update priority %q: %w", id, err)
	}
	return a, nil
}

// UpdateAdminNotes replaces the admin-only notes field.
func (r *AssignmentRepo) UpdateAdminNotes(ctx context.Context, id string, notes string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE assignments SET admin_notes = $2 WHERE id = $1`, id, notes)
	if err != nil {
		return fmt.Errorf("update admin notes %q: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *AssignmentRepo) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assignments WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("assignment exists %q: %w", id, err)
	}
	return ok, nil
}

// List returns a page of assignments plus per-status totals for the same
// non-status filters, for operational dashboards.
func (r *AssignmentRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Assignment, domain.StatusCounts, error) {
	where := ""
	args := make([]any, 0, 5)
	and := func(cond string, v any) {
		args = append(args, v)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}

	if f.AssignedTo != nil {
		and("assigned_to = $%d", *f.AssignedTo)
	}
	if f.Priority != nil {
		and("priority = $%d", *f.Priority)
	}

	counts := domain.StatusCounts{}
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM assignments`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("count assignments: %w", err)
	}
	for rows.Next() {
		var (
			s domain.AssignmentStatus
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			rows.Close()
			return nil, nil, err
		}
		counts[s] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if f.Status != nil {
		and("status = $%d", *f.Status)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	q := `SELECT ` + assignmentColumns + ` FROM assignments` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err = r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	list, err := collectAssignments(rows)
	if err != nil {
		return nil, nil, err
	}
	return list, counts, nil
}
