package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type activeBatchCounter interface {
	CountActive(ctx context.Context, batchIDs []string) (int, error)
	IDsForInstructor(ctx context.Context, instructorID string) ([]string, error)
}

type activeDancerCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type sessionDayCounter interface {
	CountOnDate(ctx context.Context, date time.Time, batchIDs []string) (int, error)
}

type presentDayCounter interface {
	CountPresentOn(ctx context.Context, date time.Time, batchIDs []string) (int, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Batches    activeBatchCounter
	Dancers    activeDancerCounter
	Sessions   sessionDayCounter
	Attendance presentDayCounter
	Lookups    lookupProvider
	Logger     *zap.Logger
	Location   *time.Location
}

// DashboardService composes the landing page counters. Values are computed per request.
type DashboardService struct {
	batches    activeBatchCounter
	dancers    activeDancerCounter
	sessions   sessionDayCounter
	attendance presentDayCounter
	lookups    lookupProvider
	logger     *zap.Logger
	location   *time.Location
	now        clock
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{
		batches:    params.Batches,
		dancers:    params.Dancers,
		sessions:   params.Sessions,
		attendance: params.Attendance,
		lookups:    params.Lookups,
		logger:     logger,
		location:   loc,
	}
}

// Stats returns the counters visible to the actor. Instructors only see their batches.
func (s *DashboardService) Stats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error) {
	scope, err := batchScope(ctx, s.batches, actor)
	if err != nil {
		return nil, err
	}
	stats := &models.DashboardStats{}

	if stats.ActiveBatches, err = s.batches.CountActive(ctx, scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count batches")
	}

	lookups, err := s.lookups.Lookups(ctx, scope)
	if err != nil {
		return nil, err
	}
	dancers := make(map[string]struct{}, len(lookups))
	for _, l := range lookups {
		dancers[l.DancerID] = struct{}{}
		switch l.Status {
		case models.PassStatusExpiringSoon:
			stats.ExpiringSoon++
		case models.PassStatusExpired:
			stats.Expired++
		}
	}

	if scope == nil {
		if stats.ActiveDancers, err = s.dancers.CountActive(ctx); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count dancers")
		}
	} else {
		stats.ActiveDancers = len(dancers)
	}

	today := s.now.today(s.location)
	if stats.TodaySessions, err = s.sessions.CountOnDate(ctx, today, scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	if stats.TodayPresent, err = s.attendance.CountPresentOn(ctx, today, scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}

	s.logger.Debug("dashboard stats computed", zap.String("actor_id", actor.ID), zap.Int("expiring", stats.ExpiringSoon), zap.Int("expired", stats.Expired))
	return stats, nil
}
