package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/middleware"
	"github.com/formagestpro/formagest-api/internal/models"
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

func actorFromContext(c *gin.Context) *string {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &claims.UserID
}

func parseDateQuery(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &parsed
}
