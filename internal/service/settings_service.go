package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context, exec sqlx.ExtContext) (*models.Settings, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, settings *models.Settings) error
}

// settingsReader is what status-computing services need: fresh thresholds, optionally
// read inside their own transaction.
type settingsReader interface {
	Current(ctx context.Context, exec sqlx.ExtContext) (models.Settings, error)
}

// SettingsService exposes the tenant-wide warning thresholds. Values are never cached.
type SettingsService struct {
	repo      settingsStore
	audit     auditAppender
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo settingsStore, audit auditAppender, tx txProvider, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, audit: audit, tx: tx, validator: newValidator(validate), logger: logger}
}

// Current returns the stored thresholds, or the defaults when none were saved.
func (s *SettingsService) Current(ctx context.Context, exec sqlx.ExtContext) (models.Settings, error) {
	settings, err := s.repo.Get(ctx, exec)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultSettings(), nil
		}
		return models.Settings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return *settings, nil
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (models.Settings, error) {
	return s.Current(ctx, nil)
}

// Update changes one or both thresholds. Values below 1 are rejected, never clamped.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest, actor models.Actor) (models.Settings, error) {
	if req.MonthlyExpiryWarningDays == nil && req.ClassPackExpiryWarningRemaining == nil {
		return models.Settings{}, appErrors.Clone(appErrors.ErrValidation, "at least one setting is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Settings{}, validationError(err, "invalid settings")
	}

	var updated models.Settings
	err := runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		before, err := s.Current(ctx, tx)
		if err != nil {
			return err
		}
		after := before
		if req.MonthlyExpiryWarningDays != nil {
			after.MonthlyExpiryWarningDays = *req.MonthlyExpiryWarningDays
		}
		if req.ClassPackExpiryWarningRemaining != nil {
			after.ClassPackExpiryWarningRemaining = *req.ClassPackExpiryWarningRemaining
		}
		actorID := actor.ID
		after.UpdatedBy = &actorID
		if err := s.repo.Upsert(ctx, tx, &after); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
		}
		meta := map[string]interface{}{
			"before": thresholds(before),
			"after":  thresholds(after),
		}
		if err := s.audit.Append(ctx, tx, actor, models.AuditActionUpdateSettings, models.EntitySettings, models.SettingsID, meta); err != nil {
			return err
		}
		updated = after
		return nil
	})
	if err != nil {
		return models.Settings{}, err
	}
	s.logger.Info("settings updated",
		zap.String("actor_id", actor.ID),
		zap.Int("monthly_expiry_warning_days", updated.MonthlyExpiryWarningDays),
		zap.Int("class_pack_expiry_warning_remaining", updated.ClassPackExpiryWarningRemaining))
	return updated, nil
}

func thresholds(s models.Settings) map[string]int {
	return map[string]int{
		"monthly_expiry_warning_days":         s.MonthlyExpiryWarningDays,
		"class_pack_expiry_warning_remaining": s.ClassPackExpiryWarningRemaining,
	}
}
