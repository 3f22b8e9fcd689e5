package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
)

type reportServiceStub struct {
	hit   bool
	query dto.AttendanceReportQuery
}

func (s *reportServiceStub) AttendanceReport(_ context.Context, query dto.AttendanceReportQuery, _ models.Actor) ([]models.BatchAttendanceReport, bool, error) {
	s.query = query
	return []models.BatchAttendanceReport{{BatchID: "b1", BatchName: "Salsa Basics", TotalSessions: 1}}, s.hit, nil
}

func (s *reportServiceStub) ExpiringReport(context.Context, models.Actor) (*models.ExpiringReport, error) {
	return &models.ExpiringReport{Expiring: []models.Notification{}, Expired: []models.Notification{{DancerID: "d2"}}}, nil
}

func TestReportHandlerAttendanceCacheMeta(t *testing.T) {
	svc := &reportServiceStub{hit: true}
	handler := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/reports/attendance?batch_id=b1&start_date=2024-06-01&end_date=2024-06-30", nil, adminClaims)

	handler.Attendance(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, dto.AttendanceReportQuery{BatchID: "b1", StartDate: "2024-06-01", EndDate: "2024-06-30"}, svc.query)
}

func TestReportHandlerAttendanceMiss(t *testing.T) {
	handler := NewReportHandler(&reportServiceStub{})
	c, rec := newTestContext(http.MethodGet, "/reports/attendance", nil, adminClaims)

	handler.Attendance(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestReportHandlerExpiring(t *testing.T) {
	handler := NewReportHandler(&reportServiceStub{})
	c, rec := newTestContext(http.MethodGet, "/reports/expiring", nil, adminClaims)

	handler.Expiring(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"expiring":[],"expired":[{"dancer_id":"d2","dancer_name":"","batch_id":"","batch_name":"","pass_id":"","pass_type":"","status":"","message":""}]}`, string(decodeEnvelope(t, rec).Data))
}
