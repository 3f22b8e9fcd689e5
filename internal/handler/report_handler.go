package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/middleware"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/response"
)

type reportService interface {
	AttendanceReport(ctx context.Context, query dto.AttendanceReportQuery, actor models.Actor) ([]models.BatchAttendanceReport, bool, error)
	ExpiringReport(ctx context.Context, actor models.Actor) (*models.ExpiringReport, error)
}

// ReportHandler serves attendance and pass-expiry reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Attendance godoc
// @Summary Attendance totals per batch and session
// @Tags Reports
// @Produce json
// @Param batch_id query string false "Batch ID"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.AttendanceReportQuery
	if !bindQuery(c, &query) {
		return
	}
	start := time.Now()
	report, cacheHit, err := h.service.AttendanceReport(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, report, nil, meta)
}

// Expiring godoc
// @Summary Passes expiring soon or expired
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/expiring [get]
func (h *ReportHandler) Expiring(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	report, err := h.service.ExpiringReport(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
