package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/controller"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/middleware"
)

// Controllers handlers mounted by InitRoutes
type Controllers struct {
	Health  *controller.HealthController
	Sync    *controller.SyncController
	Account *controller.AccountController
}

// Options route-level settings
type Options struct {
	// AdminToken guards /api, the group is not mounted when empty
	AdminToken      string
	TriggerCooldown time.Duration
	Limiter         *middleware.SyncRateLimiter
}

// New builds the ops engine with recovery and request logging
func New(ctls Controllers, opts Options, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes registers every route
func InitRoutes(r *gin.Engine, ctls Controllers, opts Options) {
	// GET /healthz
	r.GET("/healthz", ctls.Health.Healthz)

	if opts.AdminToken == "" {
		return
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewSyncRateLimiter()
	}

	api := r.Group("/api", middleware.AdminAuth(opts.AdminToken))
	{
		// POST /api/sync manual sweep
		api.GET("/sync", ctls.Sync.Status)
		api.POST("/sync",
			middleware.SyncCooldown(limiter, middleware.SyncTypeSweep, opts.TriggerCooldown),
			ctls.Sync.Trigger,
		)

		// accounts
		accounts := api.Group("/accounts")
		{
			// GET /api/accounts
			accounts.GET("", ctls.Account.List)
			// DELETE /api/accounts/:id
			accounts.DELETE("/:id", ctls.Account.Delete)
		}
	}
}
