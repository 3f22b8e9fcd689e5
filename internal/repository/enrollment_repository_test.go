package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/models"
)

func TestEnrollmentRepositoryListActiveEnrolledScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"dancer_id", "dancer_name", "batch_id", "batch_name"}).
		AddRow("d1", "Asha", "b1", "Salsa Basics")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.active = TRUE AND e.batch_id = ANY($1) ORDER BY d.full_name, b.name, e.dancer_id, e.batch_id")).
		WithArgs(pq.Array([]string{"b1"})).
		WillReturnRows(rows)

	enrolled, err := repo.ListActiveEnrolled(context.Background(), []string{"b1"})
	require.NoError(t, err)
	assert.Equal(t, []models.EnrolledDancer{{DancerID: "d1", DancerName: "Asha", BatchID: "b1", BatchName: "Salsa Basics"}}, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE dancer_id = $1 AND batch_id = $2 AND active = TRUE LIMIT 1")).
		WithArgs("d1", "b1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActive(context.Background(), nil, "d1", "b1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	leftAt := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET active = FALSE, left_at = $2 WHERE id = $1 AND active = TRUE")).
		WithArgs("e1", leftAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND active = TRUE")).
		WithArgs("e1", leftAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Deactivate(context.Background(), nil, "e1", leftAt))
	assert.ErrorIs(t, repo.Deactivate(context.Background(), nil, "e1", leftAt), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateMarksActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{DancerID: "d1", BatchID: "b1"}
	require.NoError(t, repo.Create(context.Background(), nil, enrollment))
	assert.True(t, enrollment.Active)
	assert.NotEmpty(t, enrollment.ID)
	assert.False(t, enrollment.JoinedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
