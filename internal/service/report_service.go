package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

const (
	attendanceReportCachePrefix = "reports:attendance:"
	// Kept outside the report prefix so evicting reports never resets the counter.
	attendanceReportGenerationKey = "reports:generation:attendance"
)

type sessionCountReader interface {
	SessionCounts(ctx context.Context, filter models.AttendanceReportFilter) ([]models.SessionCount, error)
}

type pendingNotifier interface {
	Pending(ctx context.Context, scope []string) ([]models.Notification, error)
}

// ReportService folds attendance history and pass state into summaries.
type ReportService struct {
	repo          sessionCountReader
	notifications pendingNotifier
	batches       instructorBatchLister
	cache         *CacheService
	cacheTTL      time.Duration
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewReportService constructs the report service. A nil cache disables caching.
func NewReportService(repo sessionCountReader, notifications pendingNotifier, batches instructorBatchLister, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:          repo,
		notifications: notifications,
		batches:       batches,
		cache:         cache,
		cacheTTL:      cacheTTL,
		validator:     newValidator(validate),
		logger:        logger,
	}
}

// AttendanceReport returns per-batch session counts. Sessions without marks are zero-filled.
// The second return value reports whether the payload came from cache.
func (s *ReportService) AttendanceReport(ctx context.Context, query dto.AttendanceReportQuery, actor models.Actor) ([]models.BatchAttendanceReport, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, validationError(err, "invalid report filter")
	}
	start, err := parseDate(query.StartDate, "start_date")
	if err != nil {
		return nil, false, err
	}
	end, err := parseDate(query.EndDate, "end_date")
	if err != nil {
		return nil, false, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, false, appErrors.WithDetails(appErrors.ErrValidation, "end_date must not be before start_date", []FieldError{{Field: "end_date", Reason: "gtefield=start_date"}})
	}
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil {
		return nil, false, err
	}

	filter := models.AttendanceReportFilter{BatchID: query.BatchID, BatchIDs: scope, StartDate: start, EndDate: end}
	cache := s.cache
	gen, ok := cache.Generation(ctx, attendanceReportGenerationKey)
	if !ok {
		cache = nil
	}
	key := attendanceReportKey(filter, gen)

	return readThrough(ctx, cache, key, s.cacheTTL, func(ctx context.Context) ([]models.BatchAttendanceReport, error) {
		rows, err := s.repo.SessionCounts(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance report")
		}
		return foldSessionCounts(rows), nil
	})
}

// ExpiringReport splits the current notifications into expiring and expired buckets.
func (s *ReportService) ExpiringReport(ctx context.Context, actor models.Actor) (*models.ExpiringReport, error) {
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil {
		return nil, err
	}
	pending, err := s.notifications.Pending(ctx, scope)
	if err != nil {
		return nil, err
	}
	report := &models.ExpiringReport{Expiring: []models.Notification{}, Expired: []models.Notification{}}
	for _, n := range pending {
		if n.Status == models.PassStatusExpired {
			report.Expired = append(report.Expired, n)
			continue
		}
		report.Expiring = append(report.Expiring, n)
	}
	return report, nil
}

// InvalidateAttendance retires every cached attendance report. The generation moves first,
// so a report computed before the write and stored after it lands under a retired key.
func (s *ReportService) InvalidateAttendance(ctx context.Context) {
	if err := s.cache.Bump(ctx, attendanceReportGenerationKey); err != nil {
		s.logger.Warn("attendance report generation bump failed", zap.Error(err))
	}
	if err := s.cache.EvictPrefix(ctx, attendanceReportCachePrefix); err != nil {
		s.logger.Warn("attendance report cache invalidation failed", zap.Error(err))
	}
}

// foldSessionCounts groups ordered session rows into per-batch reports.
func foldSessionCounts(rows []models.SessionCount) []models.BatchAttendanceReport {
	reports := make([]models.BatchAttendanceReport, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.BatchID]
		if !ok {
			i = len(reports)
			index[row.BatchID] = i
			reports = append(reports, models.BatchAttendanceReport{BatchID: row.BatchID, BatchName: row.BatchName, Sessions: []models.SessionCount{}})
		}
		r := &reports[i]
		r.Sessions = append(r.Sessions, row)
		r.TotalSessions++
		r.TotalPresent += row.Present
		r.TotalAbsent += row.Absent
	}
	return reports
}

func attendanceReportKey(filter models.AttendanceReportFilter, generation int64) string {
	parts := []string{strconv.FormatInt(generation, 10), filter.BatchID, formatOptionalDate(filter.StartDate), formatOptionalDate(filter.EndDate)}
	if filter.BatchIDs == nil {
		parts = append(parts, "*")
	} else {
		parts = append(parts, strings.Join(filter.BatchIDs, ","))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return attendanceReportCachePrefix + hex.EncodeToString(sum[:])
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
