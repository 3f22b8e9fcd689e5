package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/regulars-api/internal/middleware"
	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
	"github.com/noah-isme/regulars-api/pkg/response"
)

// requireActor resolves the authenticated actor or writes 401 and returns false.
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return false
	}
	return true
}
