package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/models"
)

func newRosterDashboard(db *memDB) *DashboardService {
	svc := NewDashboardService(DashboardServiceParams{
		Batches:    batchRepoStub{db: db},
		Dancers:    dancerRepoStub{db: db},
		Sessions:   sessionRepoStub{db: db},
		Attendance: &attendanceRepoStub{db: db},
		Lookups:    newRosterNotifications(db),
	})
	svc.now = fixedClock
	return svc
}

func TestDashboardServiceStatsForAdmin(t *testing.T) {
	svc := newRosterDashboard(seedRoster())

	stats, err := svc.Stats(context.Background(), adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{
		ActiveBatches: 2,
		ActiveDancers: 3,
		ExpiringSoon:  1,
		Expired:       1,
		TodaySessions: 2,
		TodayPresent:  2,
	}, *stats)
}

func TestDashboardServiceStatsScopedToInstructor(t *testing.T) {
	svc := newRosterDashboard(seedRoster())

	stats, err := svc.Stats(context.Background(), instructorActor)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{
		ActiveBatches: 1,
		ActiveDancers: 2,
		ExpiringSoon:  1,
		Expired:       1,
		TodaySessions: 1,
		TodayPresent:  1,
	}, *stats)
}

func TestDashboardServiceStatsWithoutBatches(t *testing.T) {
	svc := newRosterDashboard(seedRoster())
	actor := models.Actor{ID: "inst-9", Role: models.RoleInstructor}

	stats, err := svc.Stats(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{}, *stats)
}
