package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// CourierRepo reads the courier directory. The directory itself is owned by
// an external service; this engine consumes availability, location and
// performance signals and derives the current load from its own assignments.
type CourierRepo struct{ db *pgxpool.Pool }

// NewCourierRepo creates a new CourierRepo.
func NewCourierRepo(db *pgxpool.Pool) *CourierRepo { return &CourierRepo{db: db} }

const courierColumns = `
    c.id, c.name, c.availability, c.verified, c.active,
    c.lat, c.lon, c.max_active, c.completed_count, c.cancelled_count, c.acceptance_rate`

// activeCountExpr derives the courier's load from non-terminal assignments
// rather than trusting a stored counter.
const activeCountExpr = `
    (SELECT COUNT(*) FROM assignments a
     WHERE a.assigned_to = c.id
       AND a.status IN ('assigned', 'accepted', 'in_transit'))`

// Get - returns courier by its ID with the derived active-assignment count.
func (r *CourierRepo) Get(ctx context.Context, id int64) (*domain.Courier, error) {
	var c domain.Courier
	err := r.db.QueryRow(ctx,
		`SELECT `+courierColumns+`, `+activeCountExpr+` FROM couriers c WHERE c.id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Availability, &c.Verified, &c.Active,
		&c.Location.Lat, &c.Location.Lon, &c.MaxActive, &c.Completed, &c.Cancelled,
		&c.AcceptanceRate, &c.ActiveCount)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("get courier %d: %w", id, err)
	}
	return &c, nil
}

// ListAvailable returns the online, verified, active part of the directory
// with derived load counts. Candidate ranking and the per-courier load check
// happen in the selector; this query only narrows the snapshot.
func (r *CourierRepo) ListAvailable(ctx context.Context) ([]domain.Courier, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+courierColumns+`, `+activeCountExpr+`
        FROM couriers c
        WHERE c.availability = 'online' AND c.verified AND c.active
        ORDER BY c.id
    `)
	if err != nil {
		return nil, fmt.Errorf("list available couriers: %w", err)
	}
	defer rows.Close()

	var out []domain.Courier
	for rows.Next() {
		var c domain.Courier
		if err := rows.Scan(&c.ID, &c.Name, &c.Availability, &c.Verified, &c.Active,
			&c.Location.Lat, &c.Location.Lon, &c.MaxActive, &c.Completed, &c.Cancelled,
			&c.AcceptanceRate, &c.ActiveCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create - registers a courier. Used by directory sync and tests.
func (r *CourierRepo) Create(ctx context.Context, c *domain.Courier) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
        INSERT INTO couriers (name, availability, verified, active, lat, lon,
                              max_active, completed_count, cancelled_count, acceptance_rate)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id
    `, c.Name, c.Availability, c.Verified, c.Active, c.Location.Lat, c.Location.Lon,
		c.MaxActive, c.Completed, c.Cancelled, c.AcceptanceRate).Scan(&id)
	if err != nil {
		if IsDuplicate(err) {
			return 0, apperr.ErrConflict
		}
		return 0, fmt.Errorf("create courier: %w", err)
	}
	return id, nil
}

// UpdateAvailability - updates the directory availability flag.
func (r *CourierRepo) UpdateAvailability(ctx context.Context, id int64, a domain.CourierAvailability) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE couriers SET availability = $2, updated_at = now() WHERE id = $1`,
		id, a)
	if err != nil {
		return fmt.Errorf("update courier availability %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// UpdateLocation - updates the courier's last known coordinates.
func (r *CourierRepo) UpdateLocation(ctx context.Context, id int64, loc domain.Location) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE couriers SET lat = $2, lon = $3, updated_at = now() WHERE id = $1`,
		id, loc.Lat, loc.Lon)
	if err != nil {
		return fmt.Errorf("update courier location %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
