package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type settingsServiceStub struct {
	current models.Settings
	actor   models.Actor
}

func (s *settingsServiceStub) Get(context.Context) (models.Settings, error) {
	return s.current, nil
}

func (s *settingsServiceStub) Update(_ context.Context, req dto.UpdateSettingsRequest, actor models.Actor) (models.Settings, error) {
	s.actor = actor
	if req.MonthlyExpiryWarningDays == nil && req.ClassPackExpiryWarningRemaining == nil {
		return models.Settings{}, appErrors.Clone(appErrors.ErrValidation, "at least one setting is required")
	}
	if req.MonthlyExpiryWarningDays != nil {
		s.current.MonthlyExpiryWarningDays = *req.MonthlyExpiryWarningDays
	}
	if req.ClassPackExpiryWarningRemaining != nil {
		s.current.ClassPackExpiryWarningRemaining = *req.ClassPackExpiryWarningRemaining
	}
	return s.current, nil
}

func TestSettingsHandlerGet(t *testing.T) {
	handler := NewSettingsHandler(&settingsServiceStub{current: models.DefaultSettings()})
	c, rec := newTestContext(http.MethodGet, "/settings", nil, instructorClaims)

	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"monthly_expiry_warning_days":5,"class_pack_expiry_warning_remaining":2,"updated_at":"0001-01-01T00:00:00Z"}`, string(decodeEnvelope(t, rec).Data))
}

func TestSettingsHandlerUpdate(t *testing.T) {
	svc := &settingsServiceStub{current: models.DefaultSettings()}
	handler := NewSettingsHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/settings", `{"monthly_expiry_warning_days":7}`, adminClaims)
	handler.Update(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, svc.current.MonthlyExpiryWarningDays)
	assert.Equal(t, "admin-1", svc.actor.ID)

	c, rec = newTestContext(http.MethodPut, "/settings", `{}`, adminClaims)
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
