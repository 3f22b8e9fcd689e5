package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/models"
)

func TestReportRepositorySessionCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"batch_id", "batch_name", "session_id", "date", "present", "absent", "total"}).
		AddRow("b1", "Salsa Basics", "s0", start, 0, 0, 0).
		AddRow("b1", "Salsa Basics", "s1", end, 3, 1, 4)
	mock.ExpectQuery(`LEFT JOIN attendance_records a ON a\.session_id = s\.id\s+WHERE s\.batch_id = \$1 AND s\.date >= \$2 AND s\.date <= \$3`).
		WithArgs("b1", start, end).
		WillReturnRows(rows)

	counts, err := repo.SessionCounts(context.Background(), models.AttendanceReportFilter{BatchID: "b1", StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 0, counts[0].Total)
	assert.Equal(t, 3, counts[1].Present)
	assert.NoError(t, mock.ExpectationsWereMet())
}
