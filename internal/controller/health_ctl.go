package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthController liveness probe
type HealthController struct {
	task SweepTrigger
}

func NewHealthController(task SweepTrigger) *HealthController {
	return &HealthController{task: task}
}

// Healthz GET /healthz
func (c *HealthController) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"sweep_running": c.task.Running(),
	})
}
