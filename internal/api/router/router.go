package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finpoint/bankscrape/internal/api/handler"
	"github.com/finpoint/bankscrape/internal/api/middleware"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Liveness endpoint; the evaluated system health lives under /api/v1
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "bank-scraper",
		})
	})

	scrapeHandler := handler.NewScrapeHandler(deps)
	sessionHandler := handler.NewSessionHandler(deps)
	opsHandler := handler.NewOpsHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		scrape := v1.Group("/scrape")
		{
			// POST /api/v1/scrape - Enqueue a scraping job
			scrape.POST("", scrapeHandler.SubmitScrape)

			// GET /api/v1/scrape/:job_id/status - Job state and progress
			scrape.GET("/:job_id/status", scrapeHandler.GetScrapeStatus)

			// POST /api/v1/scrape/:job_id/cancel - Cancel a job
			scrape.POST("/:job_id/cancel", scrapeHandler.CancelScrape)
		}

		// GET /api/v1/queue/metrics - Job counts by state
		v1.GET("/queue/metrics", scrapeHandler.GetQueueMetrics)

		// GET /api/v1/outcomes - Archived terminal job outcomes
		v1.GET("/outcomes", scrapeHandler.ListOutcomes)

		sessions := v1.Group("/sessions")
		{
			// POST /api/v1/sessions - Create a session
			sessions.POST("", sessionHandler.CreateSession)

			// GET /api/v1/sessions/stats - Active session count
			sessions.GET("/stats", sessionHandler.GetSessionStats)

			current := sessions.Group("", middleware.RequireSession(deps.Sessions))
			{
				// GET /api/v1/sessions/current - Resolve the caller's session
				current.GET("/current", sessionHandler.GetCurrentSession)

				// PUT /api/v1/sessions/current - Merge new session fields
				current.PUT("/current", sessionHandler.UpdateCurrentSession)

				// POST /api/v1/sessions/current/extend - Push back expiry
				current.POST("/current/extend", sessionHandler.ExtendCurrentSession)

				// DELETE /api/v1/sessions/current - Drop the session
				current.DELETE("/current", sessionHandler.DeleteCurrentSession)
			}
		}

		// GET /api/v1/health - Last periodic health evaluation
		v1.GET("/health", opsHandler.GetHealth)

		// GET /api/v1/metrics - Scraping, proxy, and rate-limit metrics
		v1.GET("/metrics", opsHandler.GetMetrics)

		// POST /api/v1/metrics/reset - Zero all counters
		v1.POST("/metrics/reset", opsHandler.ResetMetrics)

		alerts := v1.Group("/alerts")
		{
			// GET /api/v1/alerts/config - Current alert configuration
			alerts.GET("/config", opsHandler.GetAlertConfig)

			// PUT /api/v1/alerts/config - Partial configuration update
			alerts.PUT("/config", opsHandler.UpdateAlertConfig)
		}

		// GET /api/v1/targets - Registered scraping targets
		v1.GET("/targets", opsHandler.ListTargets)
	}

	return r
}
