package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/regulars-api/internal/models"
)

const enrollmentColumns = `id, dancer_id, batch_id, active, joined_at, left_at`

// EnrollmentRepository manages dancer to batch memberships.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs a new repository instance.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns an enrollment or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindActive returns the active enrollment for a dancer in a batch or sql.ErrNoRows.
func (r *EnrollmentRepository) FindActive(ctx context.Context, exec sqlx.ExtContext, dancerID, batchID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE dancer_id = $1 AND batch_id = $2 AND active = TRUE LIMIT 1`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, dancerID, batchID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByDancer returns every enrollment of a dancer, newest first.
func (r *EnrollmentRepository) ListByDancer(ctx context.Context, dancerID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE dancer_id = $1 ORDER BY joined_at DESC, id`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, dancerID); err != nil {
		return nil, fmt.Errorf("list dancer enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveEnrolled returns active enrollments of active dancers in active batches.
// A nil batchIDs slice means every batch.
func (r *EnrollmentRepository) ListActiveEnrolled(ctx context.Context, batchIDs []string) ([]models.EnrolledDancer, error) {
	query := `
SELECT e.dancer_id, d.full_name AS dancer_name, e.batch_id, b.name AS batch_name
FROM enrollments e
JOIN dancers d ON d.id = e.dancer_id AND d.active = TRUE
JOIN batches b ON b.id = e.batch_id AND b.active = TRUE
WHERE e.active = TRUE`
	var args []interface{}
	if batchIDs != nil {
		query += ` AND e.batch_id = ANY($1)`
		args = append(args, pq.Array(batchIDs))
	}
	query += ` ORDER BY d.full_name, b.name, e.dancer_id, e.batch_id`

	var rows []models.EnrolledDancer
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return rows, nil
}

// Create inserts an active enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	enrollment.Active = true

	const query = `INSERT INTO enrollments (id, dancer_id, batch_id, active, joined_at) VALUES (:id, :dancer_id, :batch_id, :active, :joined_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Deactivate marks an enrollment inactive. Returns sql.ErrNoRows when nothing was active.
func (r *EnrollmentRepository) Deactivate(ctx context.Context, exec sqlx.ExtContext, id string, leftAt time.Time) error {
	const query = `UPDATE enrollments SET active = FALSE, left_at = $2 WHERE id = $1 AND active = TRUE`
	result, err := r.exec(exec).ExecContext(ctx, query, id, leftAt)
	if err != nil {
		return fmt.Errorf("deactivate enrollment: %w", err)
	}
	return requireAffected(result, "deactivate enrollment")
}

// DeactivateByDancer closes every active enrollment of a dancer.
func (r *EnrollmentRepository) DeactivateByDancer(ctx context.Context, exec sqlx.ExtContext, dancerID string, leftAt time.Time) error {
	const query = `UPDATE enrollments SET active = FALSE, left_at = $2 WHERE dancer_id = $1 AND active = TRUE`
	if _, err := r.exec(exec).ExecContext(ctx, query, dancerID, leftAt); err != nil {
		return fmt.Errorf("deactivate dancer enrollments: %w", err)
	}
	return nil
}
