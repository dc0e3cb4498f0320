package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/planner-api/internal/middleware"
	"github.com/noah-isme/planner-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// studentFromContext returns the plan owner of the authenticated request.
func studentFromContext(c *gin.Context) (string, bool) {
	id := claimsFromContext(c).StudentID()
	return id, id != ""
}
