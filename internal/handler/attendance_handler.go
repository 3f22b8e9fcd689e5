package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
	"github.com/noah-isme/regulars-api/pkg/response"
)

type attendanceService interface {
	GetOrCreateSession(ctx context.Context, req dto.SessionRequest, actor models.Actor) (*models.Session, bool, error)
	ListSessions(ctx context.Context, query dto.SessionQuery, actor models.Actor) ([]models.SessionSummary, error)
	ListAttendance(ctx context.Context, sessionID string, actor models.Actor) (*dto.SessionAttendance, error)
	BulkMark(ctx context.Context, req dto.BulkMarkRequest, actor models.Actor) (*dto.BulkMarkResult, error)
	AddWalkIn(ctx context.Context, req dto.WalkInRequest, actor models.Actor) (*dto.WalkInResult, error)
}

// AttendanceHandler serves sessions and attendance marking.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Today godoc
// @Summary Get or create today's session for a batch
// @Tags Attendance
// @Produce json
// @Param batch_id query string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /sessions/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	batchID := strings.TrimSpace(c.Query("batch_id"))
	if batchID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "batch_id is required"))
		return
	}
	h.session(c, dto.SessionRequest{BatchID: batchID})
}

// CreateSession godoc
// @Summary Get or create the session for a batch on a date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.SessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	var req dto.SessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	h.session(c, req)
}

func (h *AttendanceHandler) session(c *gin.Context, req dto.SessionRequest) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	session, created, err := h.service.GetOrCreateSession(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, session, nil, map[string]interface{}{"created": created})
}

// ListSessions godoc
// @Summary List sessions with attendance counts
// @Tags Attendance
// @Produce json
// @Param batch_id query string false "Batch ID"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.SessionQuery
	if !bindQuery(c, &query) {
		return
	}
	sessions, err := h.service.ListSessions(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ListAttendance godoc
// @Summary List the marks recorded for a session
// @Tags Attendance
// @Produce json
// @Param session_id query string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "session_id is required"))
		return
	}
	result, err := h.service.ListAttendance(c.Request.Context(), sessionID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkMark godoc
// @Summary Save attendance for a session
// @Description Marks every listed dancer and charges or refunds passes atomically
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BulkMarkRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.BulkMarkRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	result, err := h.service.BulkMark(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// WalkIn godoc
// @Summary Register a walk-in dancer and mark them present
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.WalkInRequest true "Walk-in payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/walk-in [post]
func (h *AttendanceHandler) WalkIn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.WalkInRequest
	if !bindJSON(c, &req, "invalid walk-in payload") {
		return
	}
	result, err := h.service.AddWalkIn(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
