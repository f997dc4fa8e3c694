package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-console/internal/middleware"
	"github.com/noah-isme/roster-console/internal/models"
)

func sessionFromContext(c *gin.Context) models.Session {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return models.Session{}
	}
	sess, _ := value.(models.Session)
	return sess
}
