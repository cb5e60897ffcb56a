package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/voxlink/voxlink/internal/apperrors"
)

// respondError maps service errors to HTTP statuses through the
// sentinel taxonomy. Handlers never pick status codes by hand.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

// principal returns the authenticated user id set by the JWT
// middleware. Routes behind the middleware always have it.
func principal(c *gin.Context) string {
	return c.GetString("user_id")
}
