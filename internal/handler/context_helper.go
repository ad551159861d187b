package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-od-api/internal/middleware"
	"github.com/noah-isme/campus-od-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}
