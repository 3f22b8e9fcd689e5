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

const passColumns = `id, dancer_id, batch_id, type, start_date, end_date, total_classes, remaining_classes, session_id, created_by, created_at, updated_at`

// PassRepository persists pass rows. Balances are only changed through guarded updates.
type PassRepository struct {
	db *sqlx.DB
}

// NewPassRepository creates a new PassRepository.
func NewPassRepository(db *sqlx.DB) *PassRepository {
	return &PassRepository{db: db}
}

func (r *PassRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a pass or sql.ErrNoRows. With forUpdate the row is locked for the caller's transaction.
func (r *PassRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var pass models.Pass
	if err := sqlx.GetContext(ctx, r.exec(exec), &pass, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pass: %w", err)
	}
	return &pass, nil
}

// LockForDancers locks and returns every pass the dancers hold in a batch.
func (r *PassRepository) LockForDancers(ctx context.Context, exec sqlx.ExtContext, batchID string, dancerIDs []string) ([]models.Pass, error) {
	if len(dancerIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + passColumns + ` FROM passes WHERE batch_id = $1 AND dancer_id = ANY($2) ORDER BY id FOR UPDATE`
	var passes []models.Pass
	if err := sqlx.SelectContext(ctx, r.exec(exec), &passes, query, batchID, pq.Array(dancerIDs)); err != nil {
		return nil, fmt.Errorf("lock dancer passes: %w", err)
	}
	return passes, nil
}

// List returns passes matching the filter, newest first.
func (r *PassRepository) List(ctx context.Context, filter models.PassFilter) ([]models.Pass, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.DancerID != "" {
		args = append(args, filter.DancerID)
		conditions = append(conditions, fmt.Sprintf("dancer_id = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)))
	}
	if filter.BatchIDs != nil {
		args = append(args, pq.Array(filter.BatchIDs))
		conditions = append(conditions, fmt.Sprintf("batch_id = ANY($%d)", len(args)))
	}
	query := `SELECT ` + passColumns + ` FROM passes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date DESC, created_at DESC, id DESC"

	var passes []models.Pass
	if err := r.db.SelectContext(ctx, &passes, query, args...); err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	return passes, nil
}

// Create inserts a pass.
func (r *PassRepository) Create(ctx context.Context, exec sqlx.ExtContext, pass *models.Pass) error {
	if pass.ID == "" {
		pass.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pass.CreatedAt.IsZero() {
		pass.CreatedAt = now
	}
	pass.UpdatedAt = now

	const query = `INSERT INTO passes (id, dancer_id, batch_id, type, start_date, end_date, total_classes, remaining_classes, session_id, created_by, created_at, updated_at)
VALUES (:id, :dancer_id, :batch_id, :type, :start_date, :end_date, :total_classes, :remaining_classes, :session_id, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, pass); err != nil {
		return fmt.Errorf("create pass: %w", err)
	}
	return nil
}

// Decrement consumes one class. Returns sql.ErrNoRows when the balance is already zero.
func (r *PassRepository) Decrement(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE passes SET remaining_classes = remaining_classes - 1, updated_at = $2 WHERE id = $1 AND remaining_classes > 0`
	result, err := r.exec(exec).ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement pass: %w", err)
	}
	return requireAffected(result, "decrement pass")
}

// Restore returns one class. Returns sql.ErrNoRows when the balance is already at its total.
func (r *PassRepository) Restore(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE passes SET remaining_classes = remaining_classes + 1, updated_at = $2 WHERE id = $1 AND remaining_classes < total_classes`
	result, err := r.exec(exec).ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("restore pass: %w", err)
	}
	return requireAffected(result, "restore pass")
}

// Renew rewrites the validity window and balance of a pass.
func (r *PassRepository) Renew(ctx context.Context, exec sqlx.ExtContext, pass *models.Pass) error {
	pass.UpdatedAt = time.Now().UTC()
	const query = `UPDATE passes SET start_date = :start_date, end_date = :end_date, total_classes = :total_classes, remaining_classes = :remaining_classes, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, pass)
	if err != nil {
		return fmt.Errorf("renew pass: %w", err)
	}
	return requireAffected(result, "renew pass")
}
