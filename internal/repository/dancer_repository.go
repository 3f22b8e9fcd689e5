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

const dancerColumns = `d.id, d.full_name, d.phone_number, d.notes, d.active, d.created_at, d.updated_at`

// DancerRepository provides database access for club members.
type DancerRepository struct {
	db *sqlx.DB
}

// NewDancerRepository creates a new DancerRepository.
func NewDancerRepository(db *sqlx.DB) *DancerRepository {
	return &DancerRepository{db: db}
}

func (r *DancerRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a dancer or sql.ErrNoRows.
func (r *DancerRepository) FindByID(ctx context.Context, id string) (*models.Dancer, error) {
	query := `SELECT ` + dancerColumns + ` FROM dancers d WHERE d.id = $1`
	var dancer models.Dancer
	if err := r.db.GetContext(ctx, &dancer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find dancer: %w", err)
	}
	return &dancer, nil
}

// FindByIDs loads every dancer whose id is listed. Missing ids are simply absent from the result.
func (r *DancerRepository) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Dancer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + dancerColumns + ` FROM dancers d WHERE d.id = ANY($1)`
	var dancers []models.Dancer
	if err := sqlx.SelectContext(ctx, r.exec(exec), &dancers, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find dancers by ids: %w", err)
	}
	return dancers, nil
}

// List returns dancers ordered by name.
func (r *DancerRepository) List(ctx context.Context, filter models.DancerFilter) ([]models.Dancer, error) {
	var (
		conditions []string
		args       []interface{}
	)
	from := `FROM dancers d`
	if filter.BatchID != "" || filter.BatchIDs != nil {
		from += ` JOIN enrollments e ON e.dancer_id = d.id AND e.active = TRUE`
		if filter.BatchID != "" {
			args = append(args, filter.BatchID)
			conditions = append(conditions, fmt.Sprintf("e.batch_id = $%d", len(args)))
		}
		if filter.BatchIDs != nil {
			args = append(args, pq.Array(filter.BatchIDs))
			conditions = append(conditions, fmt.Sprintf("e.batch_id = ANY($%d)", len(args)))
		}
	}
	if filter.OnlyActive {
		conditions = append(conditions, "d.active = TRUE")
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(d.full_name) LIKE $%d OR d.phone_number LIKE $%d)", len(args), len(args)))
	}

	query := `SELECT DISTINCT ` + dancerColumns + ` ` + from
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY d.full_name ASC, d.id ASC"

	var dancers []models.Dancer
	if err := r.db.SelectContext(ctx, &dancers, query, args...); err != nil {
		return nil, fmt.Errorf("list dancers: %w", err)
	}
	return dancers, nil
}

// Create inserts a dancer.
func (r *DancerRepository) Create(ctx context.Context, exec sqlx.ExtContext, dancer *models.Dancer) error {
	if dancer.ID == "" {
		dancer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if dancer.CreatedAt.IsZero() {
		dancer.CreatedAt = now
	}
	dancer.UpdatedAt = now

	const query = `INSERT INTO dancers (id, full_name, phone_number, notes, active, created_at, updated_at) VALUES (:id, :full_name, :phone_number, :notes, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, dancer); err != nil {
		return fmt.Errorf("create dancer: %w", err)
	}
	return nil
}

// Update writes the mutable dancer fields.
func (r *DancerRepository) Update(ctx context.Context, exec sqlx.ExtContext, dancer *models.Dancer) error {
	dancer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE dancers SET full_name = :full_name, phone_number = :phone_number, notes = :notes, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, dancer)
	if err != nil {
		return fmt.Errorf("update dancer: %w", err)
	}
	return requireAffected(result, "update dancer")
}

// CountActive returns the number of active dancers.
func (r *DancerRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM dancers WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count active dancers: %w", err)
	}
	return total, nil
}

// requireAffected maps a zero-row write to sql.ErrNoRows.
func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
