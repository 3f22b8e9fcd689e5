package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/database"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type dancerStore interface {
	FindByID(ctx context.Context, id string) (*models.Dancer, error)
	List(ctx context.Context, filter models.DancerFilter) ([]models.Dancer, error)
	Create(ctx context.Context, exec sqlx.ExtContext, dancer *models.Dancer) error
	Update(ctx context.Context, exec sqlx.ExtContext, dancer *models.Dancer) error
}

type dancerEnrollmentStore interface {
	ListByDancer(ctx context.Context, dancerID string) ([]models.Enrollment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	DeactivateByDancer(ctx context.Context, exec sqlx.ExtContext, dancerID string, leftAt time.Time) error
}

type dancerBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	IDsForInstructor(ctx context.Context, instructorID string) ([]string, error)
}

type attendanceTotalsReader interface {
	TotalsForDancer(ctx context.Context, dancerID string) (*models.DancerAttendanceTotals, error)
}

// DancerService manages the dancer roster.
type DancerService struct {
	dancers     dancerStore
	enrollments dancerEnrollmentStore
	batches     dancerBatchReader
	passes      passLister
	attendance  attendanceTotalsReader
	settings    settingsReader
	audit       auditAppender
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
	location    *time.Location
	now         clock
}

// DancerServiceDeps groups the collaborators of DancerService.
type DancerServiceDeps struct {
	Dancers     dancerStore
	Enrollments dancerEnrollmentStore
	Batches     dancerBatchReader
	Passes      passLister
	Attendance  attendanceTotalsReader
	Settings    settingsReader
	Audit       auditAppender
	Tx          txProvider
	Validator   *validator.Validate
	Logger      *zap.Logger
	Location    *time.Location
}

// NewDancerService constructs the dancer service.
func NewDancerService(deps DancerServiceDeps) *DancerService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &DancerService{
		dancers:     deps.Dancers,
		enrollments: deps.Enrollments,
		batches:     deps.Batches,
		passes:      deps.Passes,
		attendance:  deps.Attendance,
		settings:    deps.Settings,
		audit:       deps.Audit,
		tx:          deps.Tx,
		validator:   newValidator(deps.Validator),
		logger:      logger,
		location:    loc,
	}
}

// List returns dancers visible to the actor. When a batch is given each item carries its lookup pass.
func (s *DancerService) List(ctx context.Context, query dto.DancerQuery, actor models.Actor) ([]dto.DancerListItem, error) {
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil {
		return nil, err
	}
	if query.BatchID != "" && scope != nil && !containsString(scope, query.BatchID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "batch is not assigned to you")
	}

	filter := models.DancerFilter{BatchID: query.BatchID, BatchIDs: scope, Search: strings.TrimSpace(query.Search), OnlyActive: query.OnlyActive}
	dancers, err := s.dancers.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list dancers")
	}

	items := make([]dto.DancerListItem, 0, len(dancers))
	for _, d := range dancers {
		items = append(items, dto.DancerListItem{Dancer: d})
	}
	if query.BatchID == "" || len(items) == 0 {
		return items, nil
	}

	passes, err := s.passes.List(ctx, models.PassFilter{BatchID: query.BatchID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passes")
	}
	settings, err := s.settings.Current(ctx, nil)
	if err != nil {
		return nil, err
	}
	today := s.now.today(s.location)
	grouped := groupPasses(passes)
	for i := range items {
		pass, status := LookupStatus(grouped[passKey{dancerID: items[i].ID, batchID: query.BatchID}], settings, today)
		items[i].Pass = pass
		items[i].PassStatus = status
	}
	return items, nil
}

// Get returns the dancer profile with memberships, ranked passes and attendance totals.
func (s *DancerService) Get(ctx context.Context, id string, actor models.Actor) (*dto.DancerDetail, error) {
	dancer, err := s.dancers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "dancer not found", "failed to load dancer")
	}
	enrollments, err := s.enrollments.ListByDancer(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if err := s.authorizeDancer(ctx, actor, enrollments); err != nil {
		return nil, err
	}

	passes, err := s.passes.List(ctx, models.PassFilter{DancerID: id})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passes")
	}
	settings, err := s.settings.Current(ctx, nil)
	if err != nil {
		return nil, err
	}
	totals, err := s.attendance.TotalsForDancer(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance totals")
	}

	today := s.now.today(s.location)
	ranked := RankPasses(passes)
	withStatus := make([]models.PassWithStatus, 0, len(ranked))
	for _, p := range ranked {
		withStatus = append(withStatus, models.PassWithStatus{Pass: p, ComputedStatus: ComputePassStatus(p, settings, today)})
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return &dto.DancerDetail{Dancer: *dancer, Enrollments: enrollments, Passes: withStatus, Attendance: *totals}, nil
}

// Create registers a dancer, optionally enrolling them in a batch in the same transaction.
func (s *DancerService) Create(ctx context.Context, req dto.CreateDancerRequest, actor models.Actor) (*models.Dancer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid dancer payload")
	}
	if req.BatchID == "" && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors must enroll new dancers in an assigned batch")
	}
	if req.BatchID != "" {
		batch, err := s.batches.FindByID(ctx, req.BatchID)
		if err != nil {
			return nil, notFoundOr(err, "batch not found", "failed to load batch")
		}
		if !batch.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "batch is inactive")
		}
		if err := authorizeBatch(actor, batch); err != nil {
			return nil, err
		}
	}

	dancer := &models.Dancer{
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Notes:       req.Notes,
		Active:      true,
	}
	err := runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.dancers.Create(ctx, tx, dancer); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create dancer")
		}
		if err := s.audit.Append(ctx, tx, actor, models.AuditActionCreateDancer, models.EntityDancer, dancer.ID, dancerSnapshot(*dancer)); err != nil {
			return err
		}
		if req.BatchID == "" {
			return nil
		}
		enrollment := &models.Enrollment{DancerID: dancer.ID, BatchID: req.BatchID}
		if err := s.enrollments.Create(ctx, tx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll dancer")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionCreateEnrollment, models.EntityEnrollment, enrollment.ID, map[string]interface{}{
			"dancer_id": dancer.ID,
			"batch_id":  req.BatchID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dancer created", zap.String("dancer_id", dancer.ID), zap.String("actor_id", actor.ID))
	return dancer, nil
}

// Update changes the provided dancer fields.
func (s *DancerService) Update(ctx context.Context, id string, req dto.UpdateDancerRequest, actor models.Actor) (*models.Dancer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid dancer payload")
	}
	dancer, err := s.dancers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "dancer not found", "failed to load dancer")
	}
	enrollments, err := s.enrollments.ListByDancer(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if err := s.authorizeDancer(ctx, actor, enrollments); err != nil {
		return nil, err
	}

	before := dancerSnapshot(*dancer)
	if req.FullName != nil {
		dancer.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.PhoneNumber != nil {
		dancer.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Notes != nil {
		dancer.Notes = *req.Notes
	}

	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.dancers.Update(ctx, tx, dancer); err != nil {
			return notFoundOr(err, "dancer not found", "failed to update dancer")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionUpdateDancer, models.EntityDancer, dancer.ID, map[string]interface{}{
			"before": before,
			"after":  dancerSnapshot(*dancer),
		})
	})
	if err != nil {
		return nil, err
	}
	return dancer, nil
}

// Deactivate soft-deletes a dancer and closes every active enrollment. History is kept.
func (s *DancerService) Deactivate(ctx context.Context, id string, actor models.Actor) (*models.Dancer, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can deactivate dancers")
	}
	dancer, err := s.dancers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "dancer not found", "failed to load dancer")
	}
	if !dancer.Active {
		return dancer, nil
	}

	dancer.Active = false
	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.dancers.Update(ctx, tx, dancer); err != nil {
			return notFoundOr(err, "dancer not found", "failed to deactivate dancer")
		}
		if err := s.enrollments.DeactivateByDancer(ctx, tx, dancer.ID, time.Now().UTC()); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close enrollments")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionDeactivateDancer, models.EntityDancer, dancer.ID, map[string]interface{}{
			"full_name": dancer.FullName,
		})
	})
	if err != nil {
		if database.IsRetryable(err) {
			return nil, appErrors.Retryable(appErrors.ErrConflict, "dancer is being modified, retry")
		}
		return nil, err
	}
	s.logger.Info("dancer deactivated", zap.String("dancer_id", dancer.ID), zap.String("actor_id", actor.ID))
	return dancer, nil
}

// authorizeDancer lets instructors reach dancers actively enrolled in one of their batches.
func (s *DancerService) authorizeDancer(ctx context.Context, actor models.Actor, enrollments []models.Enrollment) error {
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil || scope == nil {
		return err
	}
	for _, e := range enrollments {
		if e.Active && containsString(scope, e.BatchID) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "dancer is not in your batches")
}

func dancerSnapshot(d models.Dancer) map[string]interface{} {
	return map[string]interface{}{
		"full_name":    d.FullName,
		"phone_number": d.PhoneNumber,
		"notes":        d.Notes,
		"active":       d.Active,
	}
}
