package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type auditStore interface {
	Append(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLogEntry) error
	Count(ctx context.Context, exec sqlx.ExtContext, filter models.AuditLogFilter) (int, error)
	Query(ctx context.Context, exec sqlx.ExtContext, filter models.AuditLogFilter) ([]models.AuditLogEntry, error)
}

// auditAppender is what mutating services need from the audit trail.
type auditAppender interface {
	Append(ctx context.Context, exec sqlx.ExtContext, actor models.Actor, action models.AuditAction, entityType, entityID string, metadata interface{}) error
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditService appends and queries the audit trail.
type AuditService struct {
	repo      auditStore
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
}

// NewAuditService constructs the audit service. Query dates are interpreted in loc.
func NewAuditService(repo auditStore, tx txProvider, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AuditService{repo: repo, tx: tx, validator: newValidator(validate), logger: logger, location: loc}
}

// Append records one entry through exec so it becomes durable exactly when the caller's
// transaction commits.
func (s *AuditService) Append(ctx context.Context, exec sqlx.ExtContext, actor models.Actor, action models.AuditAction, entityType, entityID string, metadata interface{}) error {
	if !action.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown audit action "+string(action))
	}
	if actor.ID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "actor identity required")
	}
	payload := types.JSONText(`{}`)
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode audit metadata")
		}
		payload = types.JSONText(raw)
	}
	entry := &models.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActionType: action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   payload,
	}
	if err := s.repo.Append(ctx, exec, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit log")
	}
	return nil
}

// Query returns one page of entries. Count and page come from the same snapshot.
func (s *AuditService) Query(ctx context.Context, req dto.AuditLogQuery) (*dto.AuditLogPage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid audit log filter")
	}
	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}

	page := &dto.AuditLogPage{Page: filter.Page, Limit: filter.Limit}
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err = runInTx(ctx, s.tx, opts, func(tx *sqlx.Tx) error {
		total, err := s.repo.Count(ctx, tx, filter)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count audit logs")
		}
		logs, err := s.repo.Query(ctx, tx, filter)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query audit logs")
		}
		page.Total = total
		page.Logs = logs
		return nil
	})
	if err != nil {
		return nil, err
	}
	if page.Logs == nil {
		page.Logs = []models.AuditLogEntry{}
	}
	return page, nil
}

func (s *AuditService) buildFilter(req dto.AuditLogQuery) (models.AuditLogFilter, error) {
	filter := models.AuditLogFilter{
		ActorID:    req.ActorID,
		EntityType: req.EntityType,
		Page:       req.Page,
		Limit:      req.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	if filter.Limit > maxAuditLimit {
		filter.Limit = maxAuditLimit
	}
	if req.ActionType != "" {
		action := models.AuditAction(req.ActionType)
		filter.ActionType = &action
	}
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return filter, err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return filter, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return filter, appErrors.WithDetails(appErrors.ErrValidation, "end_date must not be before start_date", []FieldError{{Field: "end_date", Reason: "gtefield=start_date"}})
	}
	filter.StartDate = s.localMidnight(start)
	filter.EndDate = s.localMidnight(end)
	return filter, nil
}

// localMidnight converts a calendar date into the instant it starts in the club timezone.
func (s *AuditService) localMidnight(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.location)
	return &t
}
