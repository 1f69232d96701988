package controller

import (
	"github.com/gin-gonic/gin"

	"studygen_backend/internal/util"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func (c *HealthController) Check(ctx *gin.Context) {
	util.Success(ctx, gin.H{"status": "ok"})
}
