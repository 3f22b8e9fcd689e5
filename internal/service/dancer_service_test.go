package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

func newDancerFixture(t *testing.T) (*DancerService, *memDB, *auditRecorder, sqlmock.Sqlmock) {
	t.Helper()
	db := seedRoster()
	tx, mock := newTxProviderMock(t)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	audit := &auditRecorder{}
	svc := NewDancerService(DancerServiceDeps{
		Dancers:     dancerRepoStub{db: db},
		Enrollments: enrollmentRepoStub{db: db},
		Batches:     batchRepoStub{db: db},
		Passes:      &passRepoStub{db: db},
		Attendance:  &attendanceRepoStub{db: db},
		Settings:    settingsStub{values: models.DefaultSettings()},
		Audit:       audit,
		Tx:          tx,
	})
	svc.now = fixedClock
	return svc, db, audit, mock
}

func TestDancerServiceListWithBatchCarriesLookupStatus(t *testing.T) {
	svc, _, _, _ := newDancerFixture(t)

	items, err := svc.List(context.Background(), dto.DancerQuery{BatchID: "b1", OnlyActive: true}, instructorActor)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Asha", items[0].FullName)
	assert.Equal(t, models.PassStatusExpiringSoon, items[0].PassStatus)
	require.NotNil(t, items[0].Pass)
	assert.Equal(t, "cp1", items[0].Pass.ID)
	assert.Equal(t, "Bilal", items[1].FullName)
	assert.Equal(t, models.PassStatusExpired, items[1].PassStatus)

	items, err = svc.List(context.Background(), dto.DancerQuery{BatchID: "b2"}, adminActor)
	require.NoError(t, err)
	statuses := map[string]models.PassStatus{}
	for _, item := range items {
		statuses[item.ID] = item.PassStatus
	}
	assert.Equal(t, models.PassStatusNone, statuses["d1"])
	assert.Equal(t, models.PassStatusActive, statuses["d3"])
}

func TestDancerServiceListScopes(t *testing.T) {
	svc, _, _, _ := newDancerFixture(t)

	_, err := svc.List(context.Background(), dto.DancerQuery{BatchID: "b2"}, instructorActor)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	items, err := svc.List(context.Background(), dto.DancerQuery{Search: "ch"}, outsiderActor)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "d3", items[0].ID)
	assert.Empty(t, items[0].PassStatus)
}

func TestDancerServiceGetDetail(t *testing.T) {
	svc, _, _, _ := newDancerFixture(t)

	detail, err := svc.Get(context.Background(), "d1", instructorActor)
	require.NoError(t, err)
	assert.Len(t, detail.Enrollments, 2)
	require.Len(t, detail.Passes, 1)
	assert.Equal(t, models.PassStatusExpiringSoon, detail.Passes[0].ComputedStatus)
	assert.Equal(t, models.DancerAttendanceTotals{TotalSessions: 1, PresentCount: 1}, detail.Attendance)

	_, err = svc.Get(context.Background(), "d3", instructorActor)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), "ghost", adminActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDancerServiceCreateEnrollsInBatch(t *testing.T) {
	svc, db, audit, mock := newDancerFixture(t)
	expectTxCommit(mock)

	dancer, err := svc.Create(context.Background(), dto.CreateDancerRequest{FullName: " Esme ", PhoneNumber: "555-0101", BatchID: "b1"}, instructorActor)
	require.NoError(t, err)
	assert.Equal(t, "Esme", dancer.FullName)
	assert.True(t, dancer.Active)
	assert.Equal(t, []models.AuditAction{models.AuditActionCreateDancer, models.AuditActionCreateEnrollment}, audit.actions())

	enrolled := false
	for _, e := range db.enrollments {
		if e.DancerID == dancer.ID && e.BatchID == "b1" && e.Active {
			enrolled = true
		}
	}
	assert.True(t, enrolled)
}

func TestDancerServiceCreateRules(t *testing.T) {
	svc, _, _, mock := newDancerFixture(t)

	_, err := svc.Create(context.Background(), dto.CreateDancerRequest{FullName: "Esme"}, instructorActor)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreateDancerRequest{FullName: "Esme", BatchID: "b2"}, instructorActor)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreateDancerRequest{}, adminActor)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	expectTxCommit(mock)
	dancer, err := svc.Create(context.Background(), dto.CreateDancerRequest{FullName: "Esme"}, adminActor)
	require.NoError(t, err)
	assert.NotEmpty(t, dancer.ID)
}

func TestDancerServiceUpdateAuditsBeforeAndAfter(t *testing.T) {
	svc, _, audit, mock := newDancerFixture(t)
	expectTxCommit(mock)
	name := "Asha K"

	dancer, err := svc.Update(context.Background(), "d1", dto.UpdateDancerRequest{FullName: &name}, instructorActor)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", dancer.FullName)

	require.Len(t, audit.calls, 1)
	meta := audit.calls[0].Metadata.(map[string]interface{})
	assert.Equal(t, "Asha", meta["before"].(map[string]interface{})["full_name"])
	assert.Equal(t, "Asha K", meta["after"].(map[string]interface{})["full_name"])
}

func TestDancerServiceDeactivateClosesEnrollments(t *testing.T) {
	svc, db, audit, mock := newDancerFixture(t)

	_, err := svc.Deactivate(context.Background(), "d1", instructorActor)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	expectTxCommit(mock)
	dancer, err := svc.Deactivate(context.Background(), "d1", adminActor)
	require.NoError(t, err)
	assert.False(t, dancer.Active)
	assert.False(t, db.enrollments["e1"].Active)
	assert.False(t, db.enrollments["e4"].Active)
	assert.Contains(t, db.passes, "cp1")
	assert.NotNil(t, db.records["s1|d1"])
	assert.Equal(t, []models.AuditAction{models.AuditActionDeactivateDancer}, audit.actions())
}
