package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/regulars-api/internal/models"
)

const attendanceColumns = `id, session_id, dancer_id, status, pass_id, marked_by, created_at, updated_at`

// AttendanceRepository stores one mark per (session, dancer).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListBySession returns the marks recorded for a session.
func (r *AttendanceRepository) ListBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE session_id = $1 ORDER BY dancer_id`
	var records []models.AttendanceRecord
	if err := sqlx.SelectContext(ctx, r.exec(exec), &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session attendance: %w", err)
	}
	return records, nil
}

// Upsert inserts or overwrites the mark for (session_id, dancer_id).
func (r *AttendanceRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO attendance_records (id, session_id, dancer_id, status, pass_id, marked_by, created_at, updated_at)
VALUES (:id, :session_id, :dancer_id, :status, :pass_id, :marked_by, :created_at, :updated_at)
ON CONFLICT (session_id, dancer_id) DO UPDATE SET status = EXCLUDED.status, pass_id = EXCLUDED.pass_id, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// TotalsForDancer counts a dancer's marks across sessions.
func (r *AttendanceRepository) TotalsForDancer(ctx context.Context, dancerID string) (*models.DancerAttendanceTotals, error) {
	const query = `SELECT COUNT(*) AS total_sessions, COUNT(*) FILTER (WHERE status = 'present') AS present_count FROM attendance_records WHERE dancer_id = $1`
	var totals models.DancerAttendanceTotals
	if err := r.db.GetContext(ctx, &totals, query, dancerID); err != nil {
		return nil, fmt.Errorf("dancer attendance totals: %w", err)
	}
	return &totals, nil
}

// CountPresentOn returns present marks for sessions held on a date.
func (r *AttendanceRepository) CountPresentOn(ctx context.Context, date time.Time, batchIDs []string) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_records a JOIN sessions s ON s.id = a.session_id WHERE s.date = $1 AND a.status = 'present'`
	args := []interface{}{date}
	if batchIDs != nil {
		query += ` AND s.batch_id = ANY($2)`
		args = append(args, pq.Array(batchIDs))
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count present on date: %w", err)
	}
	return total, nil
}
