package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/response"
)

type passService interface {
	Assign(ctx context.Context, req dto.AssignPassRequest, actor models.Actor) (*models.PassWithStatus, error)
	Renew(ctx context.Context, passID string, req dto.RenewPassRequest, actor models.Actor) (*models.PassWithStatus, error)
	List(ctx context.Context, query dto.PassQuery, actor models.Actor) ([]models.PassWithStatus, error)
	Status(ctx context.Context, passID string, actor models.Actor) (*dto.PassStatusResponse, error)
}

// PassHandler serves pass assignment and renewal.
type PassHandler struct {
	service passService
}

// NewPassHandler constructs the handler.
func NewPassHandler(service passService) *PassHandler {
	return &PassHandler{service: service}
}

// List godoc
// @Summary List passes with computed status
// @Tags Passes
// @Produce json
// @Param dancer_id query string false "Dancer ID"
// @Param batch_id query string false "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /passes [get]
func (h *PassHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.PassQuery
	if !bindQuery(c, &query) {
		return
	}
	passes, err := h.service.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, passes, nil)
}

// Assign godoc
// @Summary Assign a pass to a dancer in a batch
// @Tags Passes
// @Accept json
// @Produce json
// @Param payload body dto.AssignPassRequest true "Pass payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /passes [post]
func (h *PassHandler) Assign(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.AssignPassRequest
	if !bindJSON(c, &req, "invalid pass payload") {
		return
	}
	pass, err := h.service.Assign(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pass)
}

// Renew godoc
// @Summary Renew a class pack or monthly pass
// @Tags Passes
// @Accept json
// @Produce json
// @Param id path string true "Pass ID"
// @Param payload body dto.RenewPassRequest false "Renewal payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /passes/{id}/renew [put]
func (h *PassHandler) Renew(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.RenewPassRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req, "invalid renewal payload") {
			return
		}
	}
	pass, err := h.service.Renew(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pass, nil)
}

// Status godoc
// @Summary Compute the current status of a pass
// @Tags Passes
// @Produce json
// @Param id path string true "Pass ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /passes/{id}/status [get]
func (h *PassHandler) Status(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
