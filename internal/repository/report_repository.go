package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/regulars-api/internal/models"
)

// ReportRepository runs the aggregate queries behind attendance reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SessionCounts returns present/absent counts per session. Sessions without marks are
// kept with zero counts.
func (r *ReportRepository) SessionCounts(ctx context.Context, filter models.AttendanceReportFilter) ([]models.SessionCount, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", len(args)))
	}
	if filter.BatchIDs != nil {
		args = append(args, pq.Array(filter.BatchIDs))
		conditions = append(conditions, fmt.Sprintf("s.batch_id = ANY($%d)", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("s.date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("s.date <= $%d", len(args)))
	}

	query := `
SELECT s.batch_id, b.name AS batch_name, s.id AS session_id, s.date,
	COUNT(a.id) FILTER (WHERE a.status = 'present') AS present,
	COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent,
	COUNT(a.id) AS total
FROM sessions s
JOIN batches b ON b.id = s.batch_id
LEFT JOIN attendance_records a ON a.session_id = s.id`
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nGROUP BY s.batch_id, b.name, s.id, s.date\nORDER BY b.name ASC, s.batch_id ASC, s.date ASC"

	var rows []models.SessionCount
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance session counts: %w", err)
	}
	return rows, nil
}
