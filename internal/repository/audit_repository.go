package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/regulars-api/internal/models"
)

// AuditRepository appends and queries the audit trail. Rows are never updated or deleted.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Append writes an entry through exec, so it commits with the caller's transaction.
func (r *AuditRepository) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if len(entry.Metadata) == 0 {
		entry.Metadata = types.JSONText(`{}`)
	}
	const query = `INSERT INTO audit_logs (id, actor_id, actor_name, action_type, entity_type, entity_id, metadata, timestamp)
VALUES (:id, :actor_id, :actor_name, :action_type, :entity_type, :entity_id, :metadata, :timestamp)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// auditWhere builds the conjunctive filter. EndDate bounds whole days, so the upper bound is
// the following midnight, exclusive.
func auditWhere(filter models.AuditLogFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ActionType != nil {
		args = append(args, string(*filter.ActionType))
		conditions = append(conditions, fmt.Sprintf("action_type = $%d", len(args)))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, filter.EndDate.AddDate(0, 0, 1))
		conditions = append(conditions, fmt.Sprintf("timestamp < $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Count returns the number of entries matching the filter.
func (r *AuditRepository) Count(ctx context.Context, exec sqlx.ExtContext, filter models.AuditLogFilter) (int, error) {
	where, args := auditWhere(filter)
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return 0, fmt.Errorf("count audit logs: %w", err)
	}
	return total, nil
}

// Query returns one page of matching entries, newest first.
func (r *AuditRepository) Query(ctx context.Context, exec sqlx.ExtContext, filter models.AuditLogFilter) ([]models.AuditLogEntry, error) {
	where, args := auditWhere(filter)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, actor_id, actor_name, action_type, entity_type, entity_id, metadata, timestamp FROM audit_logs%s ORDER BY timestamp DESC, id DESC LIMIT %d OFFSET %d`, where, limit, (page-1)*limit)
	entries := []models.AuditLogEntry{}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, args...); err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	return entries, nil
}
