package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/response"
)

type dancerService interface {
	List(ctx context.Context, query dto.DancerQuery, actor models.Actor) ([]dto.DancerListItem, error)
	Get(ctx context.Context, id string, actor models.Actor) (*dto.DancerDetail, error)
	Create(ctx context.Context, req dto.CreateDancerRequest, actor models.Actor) (*models.Dancer, error)
	Update(ctx context.Context, id string, req dto.UpdateDancerRequest, actor models.Actor) (*models.Dancer, error)
	Deactivate(ctx context.Context, id string, actor models.Actor) (*models.Dancer, error)
}

// DancerHandler manages club members.
type DancerHandler struct {
	service dancerService
}

// NewDancerHandler constructs the handler.
func NewDancerHandler(service dancerService) *DancerHandler {
	return &DancerHandler{service: service}
}

// List godoc
// @Summary List dancers
// @Tags Dancers
// @Produce json
// @Param batch_id query string false "Batch ID"
// @Param search query string false "Name or phone"
// @Param active query bool false "Only active dancers"
// @Success 200 {object} response.Envelope
// @Router /dancers [get]
func (h *DancerHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.DancerQuery
	if !bindQuery(c, &query) {
		return
	}
	dancers, err := h.service.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dancers, nil)
}

// Get godoc
// @Summary Dancer profile
// @Tags Dancers
// @Produce json
// @Param id path string true "Dancer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dancers/{id} [get]
func (h *DancerHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create dancer
// @Tags Dancers
// @Accept json
// @Produce json
// @Param payload body dto.CreateDancerRequest true "Dancer payload"
// @Success 201 {object} response.Envelope
// @Router /dancers [post]
func (h *DancerHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateDancerRequest
	if !bindJSON(c, &req, "invalid dancer payload") {
		return
	}
	dancer, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dancer)
}

// Update godoc
// @Summary Update dancer
// @Tags Dancers
// @Accept json
// @Produce json
// @Param id path string true "Dancer ID"
// @Param payload body dto.UpdateDancerRequest true "Dancer payload"
// @Success 200 {object} response.Envelope
// @Router /dancers/{id} [put]
func (h *DancerHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateDancerRequest
	if !bindJSON(c, &req, "invalid dancer payload") {
		return
	}
	dancer, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dancer, nil)
}

// Deactivate godoc
// @Summary Deactivate dancer
// @Tags Dancers
// @Produce json
// @Param id path string true "Dancer ID"
// @Success 200 {object} response.Envelope
// @Router /dancers/{id} [delete]
func (h *DancerHandler) Deactivate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	dancer, err := h.service.Deactivate(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dancer, nil)
}
