package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/regulars-api/internal/models"
)

// SettingsRepository reads and writes the single settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Get returns the stored settings or sql.ErrNoRows when none were saved yet.
func (r *SettingsRepository) Get(ctx context.Context, exec sqlx.ExtContext) (*models.Settings, error) {
	const query = `SELECT id, monthly_expiry_warning_days, class_pack_expiry_warning_remaining, updated_by, updated_at FROM settings WHERE id = $1`
	var settings models.Settings
	if err := sqlx.GetContext(ctx, r.exec(exec), &settings, query, models.SettingsID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &settings, nil
}

// Upsert stores the settings row.
func (r *SettingsRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, settings *models.Settings) error {
	settings.ID = models.SettingsID
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO settings (id, monthly_expiry_warning_days, class_pack_expiry_warning_remaining, updated_by, updated_at)
VALUES (:id, :monthly_expiry_warning_days, :class_pack_expiry_warning_remaining, :updated_by, :updated_at)
ON CONFLICT (id) DO UPDATE SET monthly_expiry_warning_days = EXCLUDED.monthly_expiry_warning_days,
	class_pack_expiry_warning_remaining = EXCLUDED.class_pack_expiry_warning_remaining,
	updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, settings); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
