package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/response"
)

type auditService interface {
	Query(ctx context.Context, req dto.AuditLogQuery) (*dto.AuditLogPage, error)
}

// AuditHandler exposes the audit trail to admins.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List godoc
// @Summary Query the audit log
// @Tags Audit
// @Produce json
// @Param action_type query string false "Action type"
// @Param actor_id query string false "Actor ID"
// @Param entity_type query string false "Entity type"
// @Param start_date query string false "YYYY-MM-DD, inclusive"
// @Param end_date query string false "YYYY-MM-DD, inclusive"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /audit-log [get]
func (h *AuditHandler) List(c *gin.Context) {
	var query dto.AuditLogQuery
	if !bindQuery(c, &query) {
		return
	}
	page, err := h.service.Query(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, &models.Pagination{Page: page.Page, PageSize: page.Limit, TotalCount: page.Total})
}
