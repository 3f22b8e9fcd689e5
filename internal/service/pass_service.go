package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/database"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type passStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Pass, error)
	List(ctx context.Context, filter models.PassFilter) ([]models.Pass, error)
	Create(ctx context.Context, exec sqlx.ExtContext, pass *models.Pass) error
	Renew(ctx context.Context, exec sqlx.ExtContext, pass *models.Pass) error
}

type passDancerReader interface {
	FindByID(ctx context.Context, id string) (*models.Dancer, error)
}

type passBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	IDsForInstructor(ctx context.Context, instructorID string) ([]string, error)
}

type passSessionReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Session, error)
}

// PassServiceConfig carries the pass defaults from configuration.
type PassServiceConfig struct {
	MonthlyPeriodDays    int
	DefaultClassPackSize int
	Location             *time.Location
}

// PassService assigns, renews and reports on passes.
type PassService struct {
	passes    passStore
	dancers   passDancerReader
	batches   passBatchReader
	sessions  passSessionReader
	settings  settingsReader
	audit     auditAppender
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PassServiceConfig
	now       clock
}

// NewPassService constructs the pass service.
func NewPassService(passes passStore, dancers passDancerReader, batches passBatchReader, sessions passSessionReader, settings settingsReader, audit auditAppender, tx txProvider, validate *validator.Validate, logger *zap.Logger, cfg PassServiceConfig) *PassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MonthlyPeriodDays <= 0 {
		cfg.MonthlyPeriodDays = 30
	}
	if cfg.DefaultClassPackSize <= 0 {
		cfg.DefaultClassPackSize = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &PassService{
		passes:    passes,
		dancers:   dancers,
		batches:   batches,
		sessions:  sessions,
		settings:  settings,
		audit:     audit,
		tx:        tx,
		validator: newValidator(validate),
		logger:    logger,
		cfg:       cfg,
	}
}

// Assign creates a new pass for a dancer in a batch.
func (s *PassService) Assign(ctx context.Context, req dto.AssignPassRequest, actor models.Actor) (*models.PassWithStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid pass payload")
	}
	if _, err := s.dancers.FindByID(ctx, req.DancerID); err != nil {
		return nil, notFoundOr(err, "dancer not found", "failed to load dancer")
	}
	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		return nil, notFoundOr(err, "batch not found", "failed to load batch")
	}
	if err := authorizeBatch(actor, batch); err != nil {
		return nil, err
	}

	pass, err := s.buildPass(ctx, req, actor)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.passes.Create(ctx, tx, pass); err != nil {
			if database.IsCheckViolation(err) {
				return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "pass violates balance or binding rules")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pass")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionCreatePass, models.EntityPass, pass.ID, passSnapshot(*pass))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("pass assigned", zap.String("pass_id", pass.ID), zap.String("dancer_id", pass.DancerID), zap.String("type", string(pass.Type)))
	return s.withStatus(ctx, *pass)
}

func (s *PassService) buildPass(ctx context.Context, req dto.AssignPassRequest, actor models.Actor) (*models.Pass, error) {
	today := s.now.today(s.cfg.Location)
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	if start == nil {
		start = &today
	}
	actorID := actor.ID
	pass := &models.Pass{
		DancerID:  req.DancerID,
		BatchID:   req.BatchID,
		Type:      models.PassType(req.Type),
		StartDate: *start,
		CreatedBy: &actorID,
	}

	switch pass.Type {
	case models.PassTypeMonthly:
		end, err := parseDate(req.EndDate, "end_date")
		if err != nil {
			return nil, err
		}
		if end == nil {
			e := start.AddDate(0, 0, s.cfg.MonthlyPeriodDays)
			end = &e
		}
		if end.Before(*start) {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "end_date must not be before start_date", []FieldError{{Field: "end_date", Reason: "gtefield=start_date"}})
		}
		pass.EndDate = end
	case models.PassTypeClassPack:
		total := s.cfg.DefaultClassPackSize
		if req.TotalClasses != nil {
			total = *req.TotalClasses
		}
		remaining := total
		pass.TotalClasses = &total
		pass.RemainingClasses = &remaining
	case models.PassTypeDropIn:
		one, remaining := 1, 1
		pass.TotalClasses = &one
		pass.RemainingClasses = &remaining
		if req.SessionID != nil && *req.SessionID != "" {
			session, err := s.sessions.FindByID(ctx, nil, *req.SessionID, false)
			if err != nil {
				return nil, notFoundOr(err, "session not found", "failed to load session")
			}
			if session.BatchID != req.BatchID {
				return nil, appErrors.WithDetails(appErrors.ErrValidation, "session does not belong to batch", []FieldError{{Field: "session_id", Reason: "session_batch_mismatch"}})
			}
			sessionID := session.ID
			pass.SessionID = &sessionID
			pass.StartDate = session.Date
		}
	}
	return pass, nil
}

// Renew refreshes a pass: class packs are refilled, monthly passes extended by one period.
// Attendance history is never touched.
func (s *PassService) Renew(ctx context.Context, passID string, req dto.RenewPassRequest, actor models.Actor) (*models.PassWithStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid renewal payload")
	}

	var renewed models.Pass
	err := runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		current, err := s.passes.FindByID(ctx, tx, passID, true)
		if err != nil {
			return notFoundOr(err, "pass not found", "failed to load pass")
		}
		batch, err := s.batches.FindByID(ctx, current.BatchID)
		if err != nil {
			return notFoundOr(err, "batch not found", "failed to load batch")
		}
		if err := authorizeBatch(actor, batch); err != nil {
			return err
		}

		next := *current
		today := s.now.today(s.cfg.Location)
		switch current.Type {
		case models.PassTypeClassPack:
			total := current.Total()
			if req.TotalClasses != nil {
				total = *req.TotalClasses
			}
			if total < 1 {
				return appErrors.WithDetails(appErrors.ErrValidation, "total_classes must be at least 1", []FieldError{{Field: "total_classes", Reason: "min=1"}})
			}
			remaining := total
			next.TotalClasses = &total
			next.RemainingClasses = &remaining
		case models.PassTypeMonthly:
			base := today
			if current.EndDate != nil && !current.EndDate.Before(today) {
				base = DateOnly(*current.EndDate, nil)
			} else {
				next.StartDate = today
			}
			end := base.AddDate(0, 0, s.cfg.MonthlyPeriodDays)
			next.EndDate = &end
		default:
			return appErrors.Clone(appErrors.ErrValidation, "drop-in passes are single use and cannot be renewed")
		}

		if err := s.passes.Renew(ctx, tx, &next); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvariant, "locked pass disappeared during renewal")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to renew pass")
		}
		meta := map[string]interface{}{"before": passSnapshot(*current), "after": passSnapshot(next)}
		if err := s.audit.Append(ctx, tx, actor, models.AuditActionRenewPass, models.EntityPass, next.ID, meta); err != nil {
			return err
		}
		renewed = next
		return nil
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrInvariant.Code) {
			s.logger.Error("invariant_violation", zap.String("pass_id", passID), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("pass renewed", zap.String("pass_id", renewed.ID), zap.String("type", string(renewed.Type)))
	return s.withStatus(ctx, renewed)
}

// List returns passes with their computed status, scoped to the actor's batches.
func (s *PassService) List(ctx context.Context, query dto.PassQuery, actor models.Actor) ([]models.PassWithStatus, error) {
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil {
		return nil, err
	}
	passes, err := s.passes.List(ctx, models.PassFilter{DancerID: query.DancerID, BatchID: query.BatchID, BatchIDs: scope})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list passes")
	}
	settings, err := s.settings.Current(ctx, nil)
	if err != nil {
		return nil, err
	}
	today := s.now.today(s.cfg.Location)
	result := make([]models.PassWithStatus, 0, len(passes))
	for _, p := range RankPasses(passes) {
		result = append(result, models.PassWithStatus{Pass: p, ComputedStatus: ComputePassStatus(p, settings, today)})
	}
	return result, nil
}

// Status computes the current status of one pass.
func (s *PassService) Status(ctx context.Context, passID string, actor models.Actor) (*dto.PassStatusResponse, error) {
	pass, err := s.passes.FindByID(ctx, nil, passID, false)
	if err != nil {
		return nil, notFoundOr(err, "pass not found", "failed to load pass")
	}
	if !actor.IsAdmin() {
		batch, err := s.batches.FindByID(ctx, pass.BatchID)
		if err != nil {
			return nil, notFoundOr(err, "batch not found", "failed to load batch")
		}
		if err := authorizeBatch(actor, batch); err != nil {
			return nil, err
		}
	}
	withStatus, err := s.withStatus(ctx, *pass)
	if err != nil {
		return nil, err
	}
	return &dto.PassStatusResponse{PassID: pass.ID, Status: withStatus.ComputedStatus, Message: PassMessage(*pass, withStatus.ComputedStatus)}, nil
}

func (s *PassService) withStatus(ctx context.Context, pass models.Pass) (*models.PassWithStatus, error) {
	settings, err := s.settings.Current(ctx, nil)
	if err != nil {
		return nil, err
	}
	status := ComputePassStatus(pass, settings, s.now.today(s.cfg.Location))
	return &models.PassWithStatus{Pass: pass, ComputedStatus: status}, nil
}

func passSnapshot(p models.Pass) map[string]interface{} {
	snap := map[string]interface{}{
		"dancer_id":  p.DancerID,
		"batch_id":   p.BatchID,
		"type":       p.Type,
		"start_date": p.StartDate.Format(dateLayout),
	}
	if p.EndDate != nil {
		snap["end_date"] = p.EndDate.Format(dateLayout)
	}
	if p.TotalClasses != nil {
		snap["total_classes"] = *p.TotalClasses
	}
	if p.RemainingClasses != nil {
		snap["remaining_classes"] = *p.RemainingClasses
	}
	if p.SessionID != nil {
		snap["session_id"] = *p.SessionID
	}
	return snap
}

// notFoundOr maps sql.ErrNoRows to NotFound and anything else to an internal error.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
