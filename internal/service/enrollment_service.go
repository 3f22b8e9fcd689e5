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

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindActive(ctx context.Context, exec sqlx.ExtContext, dancerID, batchID string) (*models.Enrollment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Deactivate(ctx context.Context, exec sqlx.ExtContext, id string, leftAt time.Time) error
}

type enrollmentDancerReader interface {
	FindByID(ctx context.Context, id string) (*models.Dancer, error)
}

type enrollmentBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

// EnrollmentService adds dancers to batches and removes them again.
type EnrollmentService struct {
	enrollments enrollmentStore
	dancers     enrollmentDancerReader
	batches     enrollmentBatchReader
	audit       auditAppender
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(enrollments enrollmentStore, dancers enrollmentDancerReader, batches enrollmentBatchReader, audit auditAppender, tx txProvider, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		dancers:     dancers,
		batches:     batches,
		audit:       audit,
		tx:          tx,
		validator:   newValidator(validate),
		logger:      logger,
	}
}

// Enroll creates an active enrollment. A second active enrollment for the same pair is a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollmentRequest, actor models.Actor) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	dancer, err := s.dancers.FindByID(ctx, req.DancerID)
	if err != nil {
		return nil, notFoundOr(err, "dancer not found", "failed to load dancer")
	}
	if !dancer.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dancer is inactive")
	}
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

	enrollment := &models.Enrollment{DancerID: dancer.ID, BatchID: batch.ID}
	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if _, err := s.enrollments.FindActive(ctx, tx, dancer.ID, batch.ID); err == nil {
			return appErrors.Clone(appErrors.ErrConflict, "dancer is already enrolled in this batch")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if err := s.enrollments.Create(ctx, tx, enrollment); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "dancer is already enrolled in this batch")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionCreateEnrollment, models.EntityEnrollment, enrollment.ID, map[string]interface{}{
			"dancer_id":   dancer.ID,
			"dancer_name": dancer.FullName,
			"batch_id":    batch.ID,
			"batch_name":  batch.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dancer enrolled", zap.String("dancer_id", dancer.ID), zap.String("batch_id", batch.ID))
	return enrollment, nil
}

// Deactivate removes a dancer from a batch. Passes and attendance history stay untouched.
func (s *EnrollmentService) Deactivate(ctx context.Context, id string, actor models.Actor) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "enrollment not found", "failed to load enrollment")
	}
	batch, err := s.batches.FindByID(ctx, enrollment.BatchID)
	if err != nil {
		return nil, notFoundOr(err, "batch not found", "failed to load batch")
	}
	if err := authorizeBatch(actor, batch); err != nil {
		return nil, err
	}
	if !enrollment.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is already inactive")
	}

	leftAt := time.Now().UTC()
	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.enrollments.Deactivate(ctx, tx, enrollment.ID, leftAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrConflict, "enrollment is already inactive")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate enrollment")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionRemoveDancerFromBatch, models.EntityEnrollment, enrollment.ID, map[string]interface{}{
			"dancer_id":  enrollment.DancerID,
			"batch_id":   enrollment.BatchID,
			"batch_name": batch.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	enrollment.Active = false
	enrollment.LeftAt = &leftAt
	return enrollment, nil
}
