package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "ticketer/internal/errors"
	"ticketer/internal/service"
)

// Handlers owns the HTTP surface of the settlement engine.
type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// respondError maps a service error to its HTTP status.
func respondError(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}

// currentUserID returns the authenticated caller set by the identity
// middleware.
func currentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
