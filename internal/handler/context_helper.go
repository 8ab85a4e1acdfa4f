package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/studisys/docshare-api/internal/middleware"
	"github.com/studisys/docshare-api/internal/models"
)

// claimsFromContext extracts the authenticated identity set by the JWT
// middleware.
func claimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
