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

type auditServiceStub struct {
	query dto.AuditLogQuery
}

func (s *auditServiceStub) Query(_ context.Context, req dto.AuditLogQuery) (*dto.AuditLogPage, error) {
	s.query = req
	return &dto.AuditLogPage{Logs: []models.AuditLogEntry{}, Total: 41, Page: 3, Limit: 20}, nil
}

func TestAuditHandlerListPaginates(t *testing.T) {
	svc := &auditServiceStub{}
	handler := NewAuditHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/audit-log?action_type=renew_pass&start_date=2024-06-01&page=3&limit=20", nil, adminClaims)

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.AuditLogQuery{ActionType: "renew_pass", StartDate: "2024-06-01", Page: 3, Limit: 20}, svc.query)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(41), envelope.Pagination["total_count"])
	assert.Equal(t, float64(20), envelope.Pagination["page_size"])
}

func TestAuditHandlerRejectsMalformedPage(t *testing.T) {
	handler := NewAuditHandler(&auditServiceStub{})
	c, rec := newTestContext(http.MethodGet, "/audit-log?page=abc", nil, adminClaims)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
