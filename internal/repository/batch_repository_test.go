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

var batchRowColumns = []string{"id", "name", "studio_name", "schedule_days", "time_slot", "instructor_ids", "active", "created_at", "updated_at"}

func TestBatchRepositoryListForInstructor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(batchRowColumns).
		AddRow("b1", "Salsa Basics", "Studio A", "Mon,Wed", "19:00-20:00", "{inst-1,inst-2}", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM batches WHERE active = TRUE AND $1 = ANY(instructor_ids) ORDER BY name ASC, id ASC")).
		WithArgs("inst-1").
		WillReturnRows(rows)

	batches, err := repo.List(context.Background(), models.BatchFilter{InstructorID: "inst-1", OnlyActive: true})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, pq.StringArray{"inst-1", "inst-2"}, batches[0].InstructorIDs)
	assert.True(t, batches[0].HasInstructor("inst-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryIDsForInstructorNeverNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM batches WHERE active = TRUE AND $1 = ANY(instructor_ids)")).
		WithArgs("inst-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, err := repo.IDsForInstructor(context.Background(), "inst-9")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("UPDATE batches SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, &models.Batch{ID: "ghost", Name: "Tango"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryCountActiveScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM batches WHERE active = TRUE AND id = ANY($1)")).
		WithArgs(pq.Array([]string{})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	total, err := repo.CountActive(context.Background(), []string{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
