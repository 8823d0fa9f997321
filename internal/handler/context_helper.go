package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sensei-assign-api/internal/middleware"
	"github.com/noah-isme/sensei-assign-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}
