package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

func currentUser(c *gin.Context) *models.AuthUser {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	authUser, ok := value.(*models.AuthUser)
	if !ok {
		return nil
	}
	return authUser
}

// requireUser returns the identity stored by the JWT middleware. A route
// wired without that middleware carries no identity; respond 401 instead of
// dereferencing nil further down.
func requireUser(c *gin.Context) (models.AuthUser, bool) {
	authUser := currentUser(c)
	if authUser == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
		return models.AuthUser{}, false
	}
	return *authUser, true
}
