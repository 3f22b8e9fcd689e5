package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type batchStore interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error)
	Create(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error
	Update(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error
}

type instructorReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type lookupProvider interface {
	Lookups(ctx context.Context, scope []string) ([]PassLookup, error)
}

// BatchService manages batches and their instructor assignments.
type BatchService struct {
	batches   batchStore
	users     instructorReader
	lookups   lookupProvider
	audit     auditAppender
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(batches batchStore, users instructorReader, lookups lookupProvider, audit auditAppender, tx txProvider, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{batches: batches, users: users, lookups: lookups, audit: audit, tx: tx, validator: newValidator(validate), logger: logger}
}

// List returns the batches visible to the actor with dancer and attention counts.
func (s *BatchService) List(ctx context.Context, actor models.Actor, onlyActive bool) ([]dto.BatchSummary, error) {
	filter := models.BatchFilter{OnlyActive: onlyActive}
	var scope []string
	if !actor.IsAdmin() {
		if actor.Role != models.RoleInstructor {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "role not permitted")
		}
		filter.InstructorID = actor.ID
	}
	batches, err := s.batches.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	if !actor.IsAdmin() {
		scope = make([]string, 0, len(batches))
		for _, b := range batches {
			scope = append(scope, b.ID)
		}
	}

	summaries := make([]dto.BatchSummary, 0, len(batches))
	if len(batches) == 0 {
		return summaries, nil
	}
	lookups, err := s.lookups.Lookups(ctx, scope)
	if err != nil {
		return nil, err
	}
	counts := countLookups(lookups)
	for _, b := range batches {
		c := counts[b.ID]
		summaries = append(summaries, dto.BatchSummary{Batch: b, DancerCount: c.DancerCount, ExpiringCount: c.ExpiringCount, ExpiredCount: c.ExpiredCount})
	}
	return summaries, nil
}

// Get returns one batch with its counts.
func (s *BatchService) Get(ctx context.Context, id string, actor models.Actor) (*dto.BatchSummary, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "batch not found", "failed to load batch")
	}
	if err := authorizeBatch(actor, batch); err != nil {
		return nil, err
	}
	lookups, err := s.lookups.Lookups(ctx, []string{batch.ID})
	if err != nil {
		return nil, err
	}
	c := countLookups(lookups)[batch.ID]
	return &dto.BatchSummary{Batch: *batch, DancerCount: c.DancerCount, ExpiringCount: c.ExpiringCount, ExpiredCount: c.ExpiredCount}, nil
}

// Create adds a batch. Only admins manage batches.
func (s *BatchService) Create(ctx context.Context, req dto.BatchRequest, actor models.Actor) (*models.Batch, error) {
	if err := s.checkRequest(ctx, req, actor); err != nil {
		return nil, err
	}
	batch := &models.Batch{Active: true}
	applyBatchRequest(batch, req)

	err := runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.batches.Create(ctx, tx, batch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionCreateBatch, models.EntityBatch, batch.ID, batchSnapshot(*batch))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("batch created", zap.String("batch_id", batch.ID), zap.String("name", batch.Name))
	return batch, nil
}

// Update replaces the batch details and instructor assignment.
func (s *BatchService) Update(ctx context.Context, id string, req dto.BatchRequest, actor models.Actor) (*models.Batch, error) {
	if err := s.checkRequest(ctx, req, actor); err != nil {
		return nil, err
	}
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "batch not found", "failed to load batch")
	}
	before := batchSnapshot(*batch)
	applyBatchRequest(batch, req)

	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.batches.Update(ctx, tx, batch); err != nil {
			return notFoundOr(err, "batch not found", "failed to update batch")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionUpdateBatch, models.EntityBatch, batch.ID, map[string]interface{}{
			"before": before,
			"after":  batchSnapshot(*batch),
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Deactivate hides a batch from rosters and notifications. Sessions and passes are kept.
func (s *BatchService) Deactivate(ctx context.Context, id string, actor models.Actor) (*models.Batch, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can manage batches")
	}
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "batch not found", "failed to load batch")
	}
	if !batch.Active {
		return batch, nil
	}
	batch.Active = false
	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.batches.Update(ctx, tx, batch); err != nil {
			return notFoundOr(err, "batch not found", "failed to deactivate batch")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionDeactivateBatch, models.EntityBatch, batch.ID, map[string]interface{}{
			"batch_name": batch.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *BatchService) checkRequest(ctx context.Context, req dto.BatchRequest, actor models.Actor) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can manage batches")
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid batch payload")
	}
	ids := uniqueStrings(req.InstructorIDs)
	if len(ids) == 0 {
		return nil
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructors")
	}
	valid := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u.Role == models.RoleInstructor && u.Active {
			valid[u.ID] = struct{}{}
		}
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := valid[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return appErrors.WithDetails(appErrors.ErrValidation, "unknown or inactive instructors", map[string]interface{}{
			"instructor_ids": unknown,
		})
	}
	return nil
}

func applyBatchRequest(batch *models.Batch, req dto.BatchRequest) {
	batch.Name = strings.TrimSpace(req.Name)
	batch.StudioName = strings.TrimSpace(req.StudioName)
	batch.ScheduleDays = req.ScheduleDays
	batch.TimeSlot = req.TimeSlot
	batch.InstructorIDs = uniqueStrings(req.InstructorIDs)
}

type lookupCounts struct {
	DancerCount   int
	ExpiringCount int
	ExpiredCount  int
}

// countLookups tallies enrolled dancers and their lookup statuses per batch.
func countLookups(lookups []PassLookup) map[string]lookupCounts {
	counts := make(map[string]lookupCounts)
	for _, l := range lookups {
		c := counts[l.BatchID]
		c.DancerCount++
		switch l.Status {
		case models.PassStatusExpiringSoon:
			c.ExpiringCount++
		case models.PassStatusExpired:
			c.ExpiredCount++
		}
		counts[l.BatchID] = c
	}
	return counts
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func batchSnapshot(b models.Batch) map[string]interface{} {
	return map[string]interface{}{
		"batch_name":              b.Name,
		"studio_name":             b.StudioName,
		"schedule_days":           b.ScheduleDays,
		"time_slot":               b.TimeSlot,
		"assigned_instructor_ids": []string(b.InstructorIDs),
		"active":                  b.Active,
	}
}
