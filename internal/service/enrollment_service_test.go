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

func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *memDB, *auditRecorder, sqlmock.Sqlmock) {
	t.Helper()
	db := seedRoster()
	tx, mock := newTxProviderMock(t)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	audit := &auditRecorder{}
	svc := NewEnrollmentService(enrollmentRepoStub{db: db}, dancerRepoStub{db: db}, batchRepoStub{db: db}, audit, tx, nil, nil)
	return svc, db, audit, mock
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	svc, db, audit, mock := newEnrollmentFixture(t)
	expectTxCommit(mock)

	enrollment, err := svc.Enroll(context.Background(), dto.EnrollmentRequest{DancerID: "d3", BatchID: "b1"}, instructorActor)
	require.NoError(t, err)
	assert.True(t, enrollment.Active)
	assert.Equal(t, "d3", db.enrollments[enrollment.ID].DancerID)

	require.Len(t, audit.calls, 1)
	assert.Equal(t, models.AuditActionCreateEnrollment, audit.calls[0].Action)
	assert.Equal(t, enrollment.ID, audit.calls[0].EntityID)
}

func TestEnrollmentServiceRejectsDuplicate(t *testing.T) {
	svc, _, audit, mock := newEnrollmentFixture(t)
	expectTxRollback(mock)

	_, err := svc.Enroll(context.Background(), dto.EnrollmentRequest{DancerID: "d1", BatchID: "b1"}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, audit.calls)
}

func TestEnrollmentServiceRejectsInactiveDancer(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture(t)

	_, err := svc.Enroll(context.Background(), dto.EnrollmentRequest{DancerID: "d4", BatchID: "b2"}, adminActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceForbidsForeignBatch(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture(t)

	_, err := svc.Enroll(context.Background(), dto.EnrollmentRequest{DancerID: "d2", BatchID: "b2"}, instructorActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Enroll(context.Background(), dto.EnrollmentRequest{DancerID: "ghost", BatchID: "b1"}, adminActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceDeactivateKeepsPasses(t *testing.T) {
	svc, db, audit, mock := newEnrollmentFixture(t)
	expectTxCommit(mock)

	enrollment, err := svc.Deactivate(context.Background(), "e1", instructorActor)
	require.NoError(t, err)
	assert.False(t, enrollment.Active)
	require.NotNil(t, enrollment.LeftAt)
	assert.False(t, db.enrollments["e1"].Active)
	assert.Contains(t, db.passes, "cp1")
	assert.NotNil(t, db.records["s1|d1"])
	assert.Equal(t, []models.AuditAction{models.AuditActionRemoveDancerFromBatch}, audit.actions())

	_, err = svc.Deactivate(context.Background(), "e1", instructorActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceDeactivateForbidden(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture(t)

	_, err := svc.Deactivate(context.Background(), "e3", instructorActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
