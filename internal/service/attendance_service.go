package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/database"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type sessionStore interface {
	InsertIfAbsent(ctx context.Context, session *models.Session) (bool, error)
	FindByBatchDate(ctx context.Context, batchID string, date time.Time) (*models.Session, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, forUpdate bool) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter, batchIDs []string) ([]models.SessionSummary, error)
}

type attendanceBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	IDsForInstructor(ctx context.Context, instructorID string) ([]string, error)
}

type attendanceDancerStore interface {
	FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Dancer, error)
	Create(ctx context.Context, exec sqlx.ExtContext, dancer *models.Dancer) error
}

type attendanceEnrollmentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
}

type passBalanceStore interface {
	LockForDancers(ctx context.Context, exec sqlx.ExtContext, batchID string, dancerIDs []string) ([]models.Pass, error)
	Decrement(ctx context.Context, exec sqlx.ExtContext, id string) error
	Restore(ctx context.Context, exec sqlx.ExtContext, id string) error
	Create(ctx context.Context, exec sqlx.ExtContext, pass *models.Pass) error
}

type attendanceStore interface {
	ListBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error
}

// reportInvalidator drops cached attendance reports after a committed write.
type reportInvalidator interface {
	InvalidateAttendance(ctx context.Context)
}

// Balance effects recorded per dancer in the audit metadata.
const (
	effectNone      = "none"
	effectConsumed  = "consumed"
	effectRestored  = "restored"
	effectCovered   = "covered"
	effectCapped    = "capped"
	effectNotBilled = "not_charged"
)

// markTransition describes what one record in a save did.
type markTransition struct {
	DancerID string                   `json:"dancer_id"`
	From     *models.AttendanceStatus `json:"from"`
	To       models.AttendanceStatus  `json:"to"`
	PassID   *string                  `json:"pass_id,omitempty"`
	PassType models.PassType          `json:"pass_type,omitempty"`
	Effect   string                   `json:"effect"`
}

// markOutcome is the in-transaction result of applying a set of marks.
type markOutcome struct {
	saved       int
	warnings    []models.AttendanceWarning
	transitions []markTransition
}

// AttendanceService records session attendance and reconciles pass balances.
type AttendanceService struct {
	sessions    sessionStore
	batches     attendanceBatchReader
	dancers     attendanceDancerStore
	enrollments attendanceEnrollmentStore
	passes      passBalanceStore
	attendance  attendanceStore
	settings    settingsReader
	audit       auditAppender
	reports     reportInvalidator
	metrics     *MetricsService
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
	location    *time.Location
	now         clock
}

// AttendanceServiceDeps groups the collaborators of AttendanceService.
type AttendanceServiceDeps struct {
	Sessions    sessionStore
	Batches     attendanceBatchReader
	Dancers     attendanceDancerStore
	Enrollments attendanceEnrollmentStore
	Passes      passBalanceStore
	Attendance  attendanceStore
	Settings    settingsReader
	Audit       auditAppender
	Reports     reportInvalidator
	Metrics     *MetricsService
	Tx          txProvider
	Validator   *validator.Validate
	Logger      *zap.Logger
	Location    *time.Location
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(deps AttendanceServiceDeps) *AttendanceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{
		sessions:    deps.Sessions,
		batches:     deps.Batches,
		dancers:     deps.Dancers,
		enrollments: deps.Enrollments,
		passes:      deps.Passes,
		attendance:  deps.Attendance,
		settings:    deps.Settings,
		audit:       deps.Audit,
		reports:     deps.Reports,
		metrics:     deps.Metrics,
		tx:          deps.Tx,
		validator:   newValidator(deps.Validator),
		logger:      logger,
		location:    loc,
	}
}

// GetOrCreateSession returns the session for (batch, date), creating it on first use.
// Concurrent callers converge on the single row guarded by the (batch_id, date) unique index.
func (s *AttendanceService) GetOrCreateSession(ctx context.Context, req dto.SessionRequest, actor models.Actor) (*models.Session, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationError(err, "invalid session payload")
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, false, err
	}
	if date == nil {
		today := s.now.today(s.location)
		date = &today
	}

	batch, err := s.loadBatch(ctx, req.BatchID)
	if err != nil {
		return nil, false, err
	}
	if !batch.Active {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "batch is inactive")
	}
	if err := authorizeBatch(actor, batch); err != nil {
		return nil, false, err
	}

	actorID := actor.ID
	candidate := &models.Session{BatchID: batch.ID, Date: *date, CreatedBy: &actorID}
	created, err := s.sessions.InsertIfAbsent(ctx, candidate)
	if err != nil && !database.IsUniqueViolation(err) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	session, err := s.sessions.FindByBatchDate(ctx, batch.ID, *date)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if created {
		s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("batch_id", batch.ID), zap.String("date", date.Format(dateLayout)))
	}
	return session, created, nil
}

// ListSessions returns sessions with attendance counts visible to the actor.
func (s *AttendanceService) ListSessions(ctx context.Context, query dto.SessionQuery, actor models.Actor) ([]models.SessionSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid session filter")
	}
	from, err := parseDate(query.DateFrom, "date_from")
	if err != nil {
		return nil, err
	}
	to, err := parseDate(query.DateTo, "date_to")
	if err != nil {
		return nil, err
	}
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.List(ctx, models.SessionFilter{BatchID: query.BatchID, DateFrom: from, DateTo: to}, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.SessionSummary{}
	}
	return sessions, nil
}

// ListAttendance returns the marks recorded for a session.
func (s *AttendanceService) ListAttendance(ctx context.Context, sessionID string, actor models.Actor) (*dto.SessionAttendance, error) {
	if sessionID == "" {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "session_id is required", []FieldError{{Field: "session_id", Reason: "required"}})
	}
	session, err := s.sessions.FindByID(ctx, nil, sessionID, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	batch, err := s.loadBatch(ctx, session.BatchID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBatch(actor, batch); err != nil {
		return nil, err
	}
	records, err := s.attendance.ListBySession(ctx, nil, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return &dto.SessionAttendance{Session: *session, Records: records}, nil
}

// BulkMark saves a session's attendance list as one atomic unit.
func (s *AttendanceService) BulkMark(ctx context.Context, req dto.BulkMarkRequest, actor models.Actor) (*dto.BulkMarkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	if err := rejectDuplicateDancers(req.Records); err != nil {
		return nil, err
	}
	batch, err := s.loadBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBatch(actor, batch); err != nil {
		return nil, err
	}

	var outcome *markOutcome
	err = s.withRetry(ctx, "bulk_mark", func() error {
		return runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
			session, err := s.lockSession(ctx, tx, req.SessionID, batch.ID)
			if err != nil {
				return err
			}
			result, err := s.applyMarks(ctx, tx, session, batch, req.Records, actor)
			if err != nil {
				return err
			}
			if err := s.appendMarkAudit(ctx, tx, actor, session, result); err != nil {
				return err
			}
			outcome = result
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, outcome)
	return &dto.BulkMarkResult{SessionID: req.SessionID, SavedCount: outcome.saved, Warnings: outcome.warnings}, nil
}

// AddWalkIn registers a new dancer mid-session: dancer, enrollment, a drop-in pass bound to the
// session and a present mark are created together or not at all.
func (s *AttendanceService) AddWalkIn(ctx context.Context, req dto.WalkInRequest, actor models.Actor) (*dto.WalkInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid walk-in payload")
	}
	batch, err := s.loadBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if !batch.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch is inactive")
	}
	if err := authorizeBatch(actor, batch); err != nil {
		return nil, err
	}

	var result *dto.WalkInResult
	var outcome *markOutcome
	err = s.withRetry(ctx, "walk_in", func() error {
		return runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
			session, err := s.lockSession(ctx, tx, req.SessionID, batch.ID)
			if err != nil {
				return err
			}

			dancer := &models.Dancer{FullName: req.FullName, PhoneNumber: req.PhoneNumber, Notes: req.Notes, Active: true}
			if err := s.dancers.Create(ctx, tx, dancer); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create dancer")
			}
			if err := s.audit.Append(ctx, tx, actor, models.AuditActionCreateDancer, models.EntityDancer, dancer.ID, map[string]interface{}{
				"full_name": dancer.FullName, "phone_number": dancer.PhoneNumber, "walk_in": true,
			}); err != nil {
				return err
			}

			enrollment := &models.Enrollment{DancerID: dancer.ID, BatchID: batch.ID}
			if err := s.enrollments.Create(ctx, tx, enrollment); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
			}
			if err := s.audit.Append(ctx, tx, actor, models.AuditActionCreateEnrollment, models.EntityEnrollment, enrollment.ID, map[string]interface{}{
				"dancer_id": dancer.ID, "batch_id": batch.ID,
			}); err != nil {
				return err
			}

			one := 1
			remaining := 1
			sessionID := session.ID
			actorID := actor.ID
			pass := &models.Pass{
				DancerID:         dancer.ID,
				BatchID:          batch.ID,
				Type:             models.PassTypeDropIn,
				StartDate:        session.Date,
				TotalClasses:     &one,
				RemainingClasses: &remaining,
				SessionID:        &sessionID,
				CreatedBy:        &actorID,
			}
			if err := s.passes.Create(ctx, tx, pass); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create drop-in pass")
			}
			if err := s.audit.Append(ctx, tx, actor, models.AuditActionCreatePass, models.EntityPass, pass.ID, map[string]interface{}{
				"dancer_id": dancer.ID, "batch_id": batch.ID, "type": pass.Type, "session_id": session.ID,
			}); err != nil {
				return err
			}

			marks := []dto.AttendanceMark{{DancerID: dancer.ID, Status: string(models.AttendanceStatusPresent)}}
			applied, err := s.applyMarks(ctx, tx, session, batch, marks, actor)
			if err != nil {
				return err
			}
			if err := s.appendMarkAudit(ctx, tx, actor, session, applied); err != nil {
				return err
			}

			consumed := *pass
			zero := 0
			consumed.RemainingClasses = &zero
			outcome = applied
			result = &dto.WalkInResult{
				Dancer:     *dancer,
				Enrollment: *enrollment,
				Pass:       consumed,
				Attendance: dto.BulkMarkResult{SessionID: session.ID, SavedCount: applied.saved, Warnings: applied.warnings},
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, outcome)
	s.logger.Info("walk-in added", zap.String("session_id", req.SessionID), zap.String("dancer_id", result.Dancer.ID))
	return result, nil
}

// applyMarks upserts the records and applies balance side effects against locked pass rows.
func (s *AttendanceService) applyMarks(ctx context.Context, tx sqlx.ExtContext, session *models.Session, batch *models.Batch, marks []dto.AttendanceMark, actor models.Actor) (*markOutcome, error) {
	ids := make([]string, 0, len(marks))
	for _, m := range marks {
		ids = append(ids, m.DancerID)
	}

	dancers, err := s.dancers.FindByIDs(ctx, tx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dancers")
	}
	dancerByID := make(map[string]models.Dancer, len(dancers))
	for _, d := range dancers {
		dancerByID[d.ID] = d
	}
	var missing []string
	for _, id := range ids {
		if _, ok := dancerByID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrNotFound, fmt.Sprintf("%d dancer(s) not found", len(missing)), map[string]interface{}{"missing_dancer_ids": missing})
	}

	existing, err := s.attendance.ListBySession(ctx, tx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing marks")
	}
	prior := make(map[string]models.AttendanceRecord, len(existing))
	for _, r := range existing {
		prior[r.DancerID] = r
	}

	locked, err := s.passes.LockForDancers(ctx, tx, batch.ID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock passes")
	}
	passByID := make(map[string]*models.Pass, len(locked))
	byDancer := make(map[string][]*models.Pass)
	for i := range locked {
		p := &locked[i]
		passByID[p.ID] = p
		byDancer[p.DancerID] = append(byDancer[p.DancerID], p)
	}

	settings, err := s.settings.Current(ctx, tx)
	if err != nil {
		return nil, err
	}
	today := s.now.today(s.location)

	outcome := &markOutcome{warnings: []models.AttendanceWarning{}}
	actorID := actor.ID
	for _, m := range marks {
		status := models.AttendanceStatus(m.Status)
		dancer := dancerByID[m.DancerID]
		record := &models.AttendanceRecord{SessionID: session.ID, DancerID: m.DancerID, Status: status, MarkedBy: &actorID}
		transition := markTransition{DancerID: m.DancerID, To: status, Effect: effectNone}

		prev, hadPrev := prior[m.DancerID]
		if hadPrev {
			from := prev.Status
			transition.From = &from
			record.ID = prev.ID
			record.CreatedAt = prev.CreatedAt
			record.PassID = prev.PassID
		}
		wasPresent := hadPrev && prev.Status == models.AttendanceStatusPresent

		switch {
		case status == models.AttendanceStatusPresent && !wasPresent:
			warning, err := s.charge(ctx, tx, session, dancer, batch, snapshot(byDancer[m.DancerID]), settings, today, record, &transition)
			if err != nil {
				return nil, err
			}
			if warning != nil {
				outcome.warnings = append(outcome.warnings, *warning)
			}
		case status == models.AttendanceStatusAbsent && wasPresent:
			if err := s.reverse(ctx, tx, session, passByID, record, &transition); err != nil {
				return nil, err
			}
		}

		if err := s.attendance.Upsert(ctx, tx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
		}
		outcome.saved++
		outcome.transitions = append(outcome.transitions, transition)
	}
	return outcome, nil
}

// snapshot copies the locked pass rows for status computation.
func snapshot(passes []*models.Pass) []models.Pass {
	out := make([]models.Pass, 0, len(passes))
	for _, p := range passes {
		out = append(out, *p)
	}
	return out
}

// charge applies the present-mark side effect to the dancer's lookup pass and returns a
// warning when the save leaves the pass needing attention.
func (s *AttendanceService) charge(ctx context.Context, tx sqlx.ExtContext, session *models.Session, dancer models.Dancer, batch *models.Batch, passes []models.Pass, settings models.Settings, today time.Time, record *models.AttendanceRecord, transition *markTransition) (*models.AttendanceWarning, error) {
	record.PassID = nil
	// A session dated after today is charged to the pass in force on the class date.
	if day := DateOnly(session.Date, nil); day.After(today) {
		today = day
	}
	lookup := LookupPass(passes, settings, today)
	if lookup == nil {
		return &models.AttendanceWarning{
			DancerID: dancer.ID, DancerName: dancer.FullName, BatchID: batch.ID,
			Status: models.PassStatusNone, Kind: models.WarningKindNoPass, Message: "No active pass",
		}, nil
	}

	pass := *lookup
	transition.PassID = &pass.ID
	transition.PassType = pass.Type
	before := ComputePassStatus(pass, settings, today)
	charged := false

	switch pass.Type {
	case models.PassTypeClassPack:
		if pass.Remaining() > 0 {
			if err := s.consume(ctx, tx, &pass); err != nil {
				return nil, err
			}
			charged = true
		} else {
			transition.Effect = effectNotBilled
		}
	case models.PassTypeDropIn:
		if pass.SessionID != nil && *pass.SessionID != session.ID {
			transition.Effect = effectNotBilled
			return &models.AttendanceWarning{
				DancerID: dancer.ID, DancerName: dancer.FullName, BatchID: batch.ID, PassID: pass.ID, PassType: pass.Type,
				Status: before, Kind: models.WarningKindOtherSession, Message: "Drop-in pass belongs to another session",
			}, nil
		}
		if pass.Remaining() > 0 {
			if err := s.consume(ctx, tx, &pass); err != nil {
				return nil, err
			}
			charged = true
		} else {
			transition.Effect = effectNotBilled
		}
	case models.PassTypeMonthly:
		if before == models.PassStatusExpired {
			transition.Effect = effectNotBilled
		} else {
			transition.Effect = effectCovered
			record.PassID = &pass.ID
		}
	}
	if charged {
		transition.Effect = effectConsumed
		record.PassID = &pass.ID
	}

	after := ComputePassStatus(pass, settings, today)
	exhausted := charged && pass.Remaining() == 0
	chargedExpired := !charged && before == models.PassStatusExpired
	if !after.NeedsAttention() || (after == before && !exhausted && !chargedExpired) {
		return nil, nil
	}
	kind := string(after)
	if exhausted && pass.Type == models.PassTypeClassPack {
		kind = models.WarningKindExhausted
	}
	return &models.AttendanceWarning{
		DancerID: dancer.ID, DancerName: dancer.FullName, BatchID: batch.ID, PassID: pass.ID, PassType: pass.Type,
		Status: after, Kind: kind, Message: PassMessage(pass, after),
	}, nil
}

// consume decrements a locked pass. The row was checked under lock, so a guard miss means
// the stored balance disagrees with what was read.
func (s *AttendanceService) consume(ctx context.Context, tx sqlx.ExtContext, pass *models.Pass) error {
	if err := s.passes.Decrement(ctx, tx, pass.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.invariant("decrement below zero", zap.String("pass_id", pass.ID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pass balance")
	}
	remaining := pass.Remaining() - 1
	pass.RemainingClasses = &remaining
	return nil
}

// reverse undoes the charge recorded on the prior present mark.
func (s *AttendanceService) reverse(ctx context.Context, tx sqlx.ExtContext, session *models.Session, passByID map[string]*models.Pass, record *models.AttendanceRecord, transition *markTransition) error {
	passID := record.PassID
	record.PassID = nil
	if passID == nil {
		return nil
	}
	pass, ok := passByID[*passID]
	if !ok {
		return s.invariant("charged pass missing for reversal", zap.String("pass_id", *passID), zap.String("session_id", session.ID))
	}
	transition.PassID = &pass.ID
	transition.PassType = pass.Type
	if pass.Type == models.PassTypeMonthly {
		return nil
	}
	if pass.Remaining() >= pass.Total() {
		transition.Effect = effectCapped
		s.logger.Warn("pass restore capped at total", zap.String("pass_id", pass.ID), zap.String("session_id", session.ID))
		return nil
	}
	if err := s.passes.Restore(ctx, tx, pass.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.invariant("restore above total", zap.String("pass_id", pass.ID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pass balance")
	}
	remaining := pass.Remaining() + 1
	pass.RemainingClasses = &remaining
	transition.Effect = effectRestored
	return nil
}

func (s *AttendanceService) appendMarkAudit(ctx context.Context, tx sqlx.ExtContext, actor models.Actor, session *models.Session, outcome *markOutcome) error {
	meta := map[string]interface{}{
		"session_id":  session.ID,
		"batch_id":    session.BatchID,
		"date":        session.Date.Format(dateLayout),
		"saved_count": outcome.saved,
		"transitions": outcome.transitions,
	}
	return s.audit.Append(ctx, tx, actor, models.AuditActionMarkAttendance, models.EntitySession, session.ID, meta)
}

// lockSession loads the session row FOR UPDATE so saves of the same session serialize.
func (s *AttendanceService) lockSession(ctx context.Context, tx sqlx.ExtContext, sessionID, batchID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, tx, sessionID, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "session not found", map[string]string{"session_id": sessionID})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock session")
	}
	if session.BatchID != batchID {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "session does not belong to batch", []FieldError{{Field: "batch_id", Reason: "session_batch_mismatch"}})
	}
	return session, nil
}

func (s *AttendanceService) loadBatch(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "batch not found", map[string]string{"batch_id": id})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}

// withRetry runs fn and re-runs it once when it failed on a transient concurrency error.
func (s *AttendanceService) withRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !database.IsRetryable(err) {
		return err
	}
	s.metrics.RecordBulkMarkRetry()
	s.logger.Warn("retrying after transient conflict", zap.String("operation", op), zap.Error(err))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	err = fn()
	if err == nil || !database.IsRetryable(err) {
		return err
	}
	s.metrics.RecordBulkMarkConflict()
	s.logger.Warn("conflict persisted after retry", zap.String("operation", op), zap.Error(err))
	conflict := appErrors.Retryable(appErrors.ErrConflict, "attendance is being saved concurrently, please retry")
	conflict.Err = err
	return conflict
}

func (s *AttendanceService) invariant(message string, fields ...zap.Field) error {
	s.metrics.RecordInvariantViolation("attendance")
	s.logger.Error("invariant_violation", append(fields, zap.String("reason", message))...)
	return appErrors.Clone(appErrors.ErrInvariant, message)
}

func (s *AttendanceService) afterCommit(ctx context.Context, outcome *markOutcome) {
	if s.reports != nil {
		s.reports.InvalidateAttendance(ctx)
	}
	if outcome == nil {
		return
	}
	for _, t := range outcome.transitions {
		s.metrics.RecordMark(t.To)
		switch t.Effect {
		case effectConsumed:
			s.metrics.RecordBalanceChange(t.PassType, "consume")
		case effectRestored:
			s.metrics.RecordBalanceChange(t.PassType, "restore")
		}
	}
	for _, w := range outcome.warnings {
		s.metrics.RecordWarning(w.Kind)
	}
}

// rejectDuplicateDancers fails when a dancer appears more than once in one save.
func rejectDuplicateDancers(marks []dto.AttendanceMark) error {
	seen := make(map[string]int, len(marks))
	var details []FieldError
	for i, m := range marks {
		if first, ok := seen[m.DancerID]; ok {
			details = append(details, FieldError{Field: fmt.Sprintf("records[%d].dancer_id", i), Reason: fmt.Sprintf("duplicate of records[%d]", first)})
			continue
		}
		seen[m.DancerID] = i
	}
	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.ErrValidation, "duplicate dancer in records", details)
	}
	return nil
}
