package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SweepTrigger the scheduler operations exposed over HTTP
type SweepTrigger interface {
	Trigger() bool
	Running() bool
}

// SyncController manual sweep trigger
type SyncController struct {
	task SweepTrigger
}

// NewSyncController creates the sync controller
func NewSyncController(task SweepTrigger) *SyncController {
	return &SyncController{task: task}
}

// ==================== Handlers ====================

// Trigger starts a sweep now
// POST /api/sync
// 202 started, 409 a sweep is already in flight
func (c *SyncController) Trigger(ctx *gin.Context) {
	if !c.task.Trigger() {
		ctx.JSON(http.StatusConflict, gin.H{
			"code":    http.StatusConflict,
			"message": "a sync sweep is already running",
		})
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"code":    http.StatusAccepted,
		"message": "sync sweep started",
	})
}

// Status reports whether a sweep is in flight
// GET /api/sync
func (c *SyncController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": gin.H{"running": c.task.Running()},
	})
}
