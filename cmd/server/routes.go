package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/config"
	"github.com/huangang/llmrouter/internal/middleware"
	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		sqlDB, err := models.GetDB().DB()
		if err != nil {
			dbStatus = "error: " + err.Error()
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error: " + err.Error()
		}

		status := "healthy"
		if dbStatus != "ok" {
			status = "unhealthy"
		}
		c.JSON(200, gin.H{
			"status":  status,
			"service": "llmrouter",
			"components": gin.H{
				"database": dbStatus,
				"cache":    svc.cache.Enabled(),
			},
		})
	})

	// Caller-facing routing surface, API key authenticated and rate limited.
	limiter := middleware.NewRateLimiter(cfg.Routing.RateLimitRPS, cfg.Routing.RateLimitBurst)
	v1 := r.Group("/v1", limiter.Middleware(), middleware.APIKeyRequired(models.GetDB()))
	{
		v1.POST("/chat/completions", svc.chatHandler.Completions)
		v1.POST("/chat/compare", svc.chatHandler.Compare)
		v1.POST("/chat/batch", svc.chatHandler.Batch)

		v1.GET("/models", svc.modelsHandler.List)
		v1.POST("/models/rank", svc.modelsHandler.Rank)

		v1.GET("/budget", svc.budgetHandler.Snapshot)

		v1.GET("/requests", svc.ledgerHandler.ListRequests)
		v1.GET("/groups/:id", svc.ledgerHandler.GetGroup)

		v1.GET("/analytics/usage", svc.analyticsHandler.Usage)
		v1.GET("/analytics/models", svc.analyticsHandler.ModelBreakdown)
		v1.GET("/analytics/daily", svc.analyticsHandler.DailyTrend)
	}

	// Admin console, JWT authenticated.
	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			admin := protected.Group("")
			admin.Use(middleware.AdminRequired())
			{
				admin.GET("/catalog", svc.catalogHandler.List)
				admin.GET("/catalog/:model_id", svc.catalogHandler.Get)
				admin.POST("/catalog", svc.catalogHandler.Create)
				admin.PUT("/catalog/:model_id", svc.catalogHandler.Update)
				admin.DELETE("/catalog/:model_id", svc.catalogHandler.Delete)

				admin.GET("/callers", svc.callerHandler.List)
				admin.POST("/callers", svc.callerHandler.Create)
				admin.GET("/callers/:id/budget", svc.callerHandler.Snapshot)
				admin.PUT("/callers/:id/limit", svc.callerHandler.SetLimit)
				admin.POST("/callers/:id/reset-spend", svc.callerHandler.ResetSpend)
				admin.PUT("/callers/:id/active", svc.callerHandler.SetActive)
				admin.POST("/callers/:id/rotate-key", svc.callerHandler.RotateKey)
				admin.DELETE("/callers/:id", svc.callerHandler.Delete)

				admin.GET("/analytics/usage", svc.analyticsHandler.AdminUsage)
				admin.GET("/analytics/models", svc.analyticsHandler.AdminModelBreakdown)
				admin.GET("/analytics/daily", svc.analyticsHandler.AdminDailyTrend)

				admin.GET("/cache/stats", svc.cacheHandler.Stats)
				admin.POST("/cache/clear", svc.cacheHandler.Clear)
			}
		}
	}
}
