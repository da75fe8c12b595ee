package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== Sync cooldown ====================

// SyncCooldown rejects a manual trigger inside the cooldown window.
// The cooldown starts only when the handler answers 202, so a trigger refused because a sweep is
// already running can be retried right away.
//
//	api.POST("/sync",
//	    middleware.SyncCooldown(limiter, middleware.SyncTypeSweep, time.Minute),
//	    syncCtl.Trigger,
//	)
func SyncCooldown(limiter *SyncRateLimiter, syncType SyncType, interval time.Duration) gin.HandlerFunc {
	key := GlobalSyncKey(syncType)

	return func(c *gin.Context) {
		result := limiter.CheckOnly(key, interval)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", fmt.Sprint(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retryAfter,
					"sync_type":   syncType,
				},
			})
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusAccepted {
			limiter.MarkExecuted(key)
		}
	}
}

// formatRetryMessage human readable cooldown hint
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds < 60 {
		return fmt.Sprintf("sync cooling down, retry in %ds", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60
	if remainingSeconds == 0 {
		return fmt.Sprintf("sync cooling down, retry in %dm", minutes)
	}
	return fmt.Sprintf("sync cooling down, retry in %dm%ds", minutes, remainingSeconds)
}
