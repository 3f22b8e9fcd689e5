package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/models"
)

var passRowColumns = []string{"id", "dancer_id", "batch_id", "type", "start_date", "end_date", "total_classes", "remaining_classes", "session_id", "created_by", "created_at", "updated_at"}

func TestPassRepositoryLockForDancers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(passRowColumns).
		AddRow("p1", "d1", "b1", "class_pack", now, nil, 8, 3, nil, "admin-1", now, now).
		AddRow("p2", "d2", "b1", "monthly", now, now.AddDate(0, 1, 0), nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM passes WHERE batch_id = $1 AND dancer_id = ANY($2) ORDER BY id FOR UPDATE")).
		WithArgs("b1", pq.Array([]string{"d1", "d2"})).
		WillReturnRows(rows)

	passes, err := repo.LockForDancers(context.Background(), nil, "b1", []string{"d1", "d2"})
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, 3, passes[0].Remaining())
	assert.Equal(t, models.PassTypeMonthly, passes[1].Type)
	assert.Nil(t, passes[1].RemainingClasses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepositoryLockForNoDancers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	passes, err := NewPassRepository(db).LockForDancers(context.Background(), nil, "b1", nil)
	require.NoError(t, err)
	assert.Nil(t, passes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepositoryFindByIDForUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM passes WHERE id = $1 FOR UPDATE")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "ghost", true)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepositoryDecrementGuardsZeroBalance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET remaining_classes = remaining_classes - 1, updated_at = $2 WHERE id = $1 AND remaining_classes > 0")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("remaining_classes > 0")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Decrement(context.Background(), nil, "p1"))
	assert.ErrorIs(t, repo.Decrement(context.Background(), nil, "p1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepositoryRestoreCapsAtTotal(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET remaining_classes = remaining_classes + 1, updated_at = $2 WHERE id = $1 AND remaining_classes < total_classes")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Restore(context.Background(), nil, "p1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepositoryListByBatchScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM passes WHERE dancer_id = $1 AND batch_id = ANY($2) ORDER BY start_date DESC, created_at DESC, id DESC")).
		WithArgs("d1", pq.Array([]string{"b1"})).
		WillReturnRows(sqlmock.NewRows(passRowColumns))

	passes, err := repo.List(context.Background(), models.PassFilter{DancerID: "d1", BatchIDs: []string{"b1"}})
	require.NoError(t, err)
	assert.Empty(t, passes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepositoryCreateWrapsErrors(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPassRepository(db)

	mock.ExpectExec("INSERT INTO passes").WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), nil, &models.Pass{DancerID: "d1", BatchID: "b1", Type: models.PassTypeDropIn})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create pass")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepositoryCreateUnboundDropIn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPassRepository(db)
	one, remaining := 1, 1
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO passes").
		WithArgs(sqlmock.AnyArg(), "d1", "b1", "drop_in", start, nil, 1, 1, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pass := &models.Pass{DancerID: "d1", BatchID: "b1", Type: models.PassTypeDropIn, StartDate: start, TotalClasses: &one, RemainingClasses: &remaining}
	require.NoError(t, repo.Create(context.Background(), nil, pass))
	assert.NotEmpty(t, pass.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
