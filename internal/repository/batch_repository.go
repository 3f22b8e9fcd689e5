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

const batchColumns = `id, name, studio_name, schedule_days, time_slot, instructor_ids, active, created_at, updated_at`

// BatchRepository persists recurring classes.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a batch or sql.ErrNoRows.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return &batch, nil
}

// List returns batches ordered by name.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.OnlyActive {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(instructor_ids)", len(args)))
	}
	query := `SELECT ` + batchColumns + ` FROM batches`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// IDsForInstructor returns the active batches an instructor is assigned to.
func (r *BatchRepository) IDsForInstructor(ctx context.Context, instructorID string) ([]string, error) {
	const query = `SELECT id FROM batches WHERE active = TRUE AND $1 = ANY(instructor_ids) ORDER BY id`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor batches: %w", err)
	}
	return ids, nil
}

// Create inserts a batch.
func (r *BatchRepository) Create(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.InstructorIDs == nil {
		batch.InstructorIDs = pq.StringArray{}
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	const query = `INSERT INTO batches (id, name, studio_name, schedule_days, time_slot, instructor_ids, active, created_at, updated_at) VALUES (:id, :name, :studio_name, :schedule_days, :time_slot, :instructor_ids, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update writes the mutable batch fields.
func (r *BatchRepository) Update(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	if batch.InstructorIDs == nil {
		batch.InstructorIDs = pq.StringArray{}
	}
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET name = :name, studio_name = :studio_name, schedule_days = :schedule_days, time_slot = :time_slot, instructor_ids = :instructor_ids, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, batch)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return requireAffected(result, "update batch")
}

// CountActive returns the number of active batches, optionally scoped.
func (r *BatchRepository) CountActive(ctx context.Context, batchIDs []string) (int, error) {
	query := `SELECT COUNT(*) FROM batches WHERE active = TRUE`
	var args []interface{}
	if batchIDs != nil {
		query += ` AND id = ANY($1)`
		args = append(args, pq.Array(batchIDs))
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count active batches: %w", err)
	}
	return total, nil
}
