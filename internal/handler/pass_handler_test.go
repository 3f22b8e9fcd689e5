package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type passServiceStub struct {
	assignReq dto.AssignPassRequest
	renewID   string
	renewReq  dto.RenewPassRequest
	listQuery dto.PassQuery
}

func (s *passServiceStub) Assign(_ context.Context, req dto.AssignPassRequest, _ models.Actor) (*models.PassWithStatus, error) {
	s.assignReq = req
	if req.Type == "drop_in" && req.SessionID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_id is required")
	}
	return &models.PassWithStatus{Pass: models.Pass{ID: "p1", Type: models.PassType(req.Type)}, ComputedStatus: models.PassStatusActive}, nil
}

func (s *passServiceStub) Renew(_ context.Context, passID string, req dto.RenewPassRequest, _ models.Actor) (*models.PassWithStatus, error) {
	s.renewID = passID
	s.renewReq = req
	if passID == "ghost" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pass not found")
	}
	return &models.PassWithStatus{Pass: models.Pass{ID: passID}, ComputedStatus: models.PassStatusActive}, nil
}

func (s *passServiceStub) List(_ context.Context, query dto.PassQuery, _ models.Actor) ([]models.PassWithStatus, error) {
	s.listQuery = query
	return []models.PassWithStatus{}, nil
}

func (s *passServiceStub) Status(_ context.Context, passID string, _ models.Actor) (*dto.PassStatusResponse, error) {
	return &dto.PassStatusResponse{PassID: passID, Status: models.PassStatusExpired, Message: "Class pack exhausted"}, nil
}

func TestPassHandlerAssign(t *testing.T) {
	svc := &passServiceStub{}
	handler := NewPassHandler(svc)
	total := 10
	c, rec := newTestContext(http.MethodPost, "/passes", dto.AssignPassRequest{DancerID: "d1", BatchID: "b1", Type: "class_pack", TotalClasses: &total}, adminClaims)

	handler.Assign(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.assignReq.TotalClasses)
	assert.Equal(t, 10, *svc.assignReq.TotalClasses)
}

func TestPassHandlerAssignValidationError(t *testing.T) {
	handler := NewPassHandler(&passServiceStub{})
	c, rec := newTestContext(http.MethodPost, "/passes", dto.AssignPassRequest{DancerID: "d1", BatchID: "b1", Type: "drop_in"}, adminClaims)

	handler.Assign(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestPassHandlerRenewWithoutBody(t *testing.T) {
	svc := &passServiceStub{}
	handler := NewPassHandler(svc)
	c, rec := newTestContext(http.MethodPut, "/passes/p1/renew", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}

	handler.Renew(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", svc.renewID)
	assert.Nil(t, svc.renewReq.TotalClasses)
}

func TestPassHandlerRenewWithTotal(t *testing.T) {
	svc := &passServiceStub{}
	handler := NewPassHandler(svc)
	c, rec := newTestContext(http.MethodPut, "/passes/p1/renew", `{"total_classes":12}`, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}

	handler.Renew(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.renewReq.TotalClasses)
	assert.Equal(t, 12, *svc.renewReq.TotalClasses)
}

func TestPassHandlerRenewUnknownPass(t *testing.T) {
	handler := NewPassHandler(&passServiceStub{})
	c, rec := newTestContext(http.MethodPut, "/passes/ghost/renew", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Renew(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPassHandlerListAndStatus(t *testing.T) {
	svc := &passServiceStub{}
	handler := NewPassHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/passes?dancer_id=d1", nil, instructorClaims)
	handler.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.PassQuery{DancerID: "d1"}, svc.listQuery)

	c, rec = newTestContext(http.MethodGet, "/passes/p1/status", nil, instructorClaims)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.Status(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"status":"expired"`))
}
