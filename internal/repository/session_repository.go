package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/regulars-api/internal/models"
)

const sessionColumns = `id, batch_id, date, created_by, created_at`

// SessionRepository persists dated batch occurrences.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertIfAbsent creates the session unless one already exists for (batch_id, date).
// It reports whether this call created the row.
func (r *SessionRepository) InsertIfAbsent(ctx context.Context, session *models.Session) (bool, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sessions (id, batch_id, date, created_by, created_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (batch_id, date) DO NOTHING RETURNING id`
	var id string
	err := r.db.QueryRowxContext(ctx, query, session.ID, session.BatchID, session.Date, session.CreatedBy, session.CreatedAt).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}
	return true, nil
}

// FindByBatchDate returns the session for a batch on a date or sql.ErrNoRows.
func (r *SessionRepository) FindByBatchDate(ctx context.Context, batchID string, date time.Time) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE batch_id = $1 AND date = $2`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, batchID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by batch date: %w", err)
	}
	return &session, nil
}

// FindByID returns a session or sql.ErrNoRows. With forUpdate the row is locked, serializing
// concurrent writers of the same session.
func (r *SessionRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var session models.Session
	if err := sqlx.GetContext(ctx, r.exec(exec), &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// List returns sessions with attendance counts, newest first.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter, batchIDs []string) ([]models.SessionSummary, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", len(args)))
	}
	if batchIDs != nil {
		args = append(args, pq.Array(batchIDs))
		conditions = append(conditions, fmt.Sprintf("s.batch_id = ANY($%d)", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("s.date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("s.date <= $%d", len(args)))
	}

	query := `
SELECT s.id, s.batch_id, s.date, s.created_by, s.created_at, b.name AS batch_name,
	COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count,
	COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent_count,
	COUNT(a.id) AS total
FROM sessions s
JOIN batches b ON b.id = s.batch_id
LEFT JOIN attendance_records a ON a.session_id = s.id`
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nGROUP BY s.id, b.name\nORDER BY s.date DESC, b.name ASC"

	var sessions []models.SessionSummary
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CountOnDate returns how many sessions exist on a date, optionally scoped to batches.
func (r *SessionRepository) CountOnDate(ctx context.Context, date time.Time, batchIDs []string) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE date = $1`
	args := []interface{}{date}
	if batchIDs != nil {
		query += ` AND batch_id = ANY($2)`
		args = append(args, pq.Array(batchIDs))
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count sessions on date: %w", err)
	}
	return total, nil
}
