package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hexascan-dev/hexascan/internal/handlers"
	"github.com/hexascan-dev/hexascan/internal/middleware"
	"github.com/hexascan-dev/hexascan/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Agent-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/escalations/:issue_id", middleware.AuthMiddleware(), handlers.WebSocket)

		// Public, token-gated: reached from notification links, no session.
		escalations := api.Group("/escalations")
		{
			escalations.GET("/:issue_id", handlers.GetEscalation)
			escalations.POST("/:issue_id/status", handlers.UpdateEscalationStatus)
			escalations.POST("/:issue_id/reports", handlers.AddEscalationReport)
		}

		// Check pipeline intake, shared-key authenticated.
		internal := api.Group("/internal", middleware.AgentAuthMiddleware())
		{
			internal.POST("/check-results", handlers.CreateCheckResult)
		}

		// Operator API, session authenticated; same state-machine rules, no token.
		admin := api.Group("/admin", middleware.AuthMiddleware())
		{
			admin.GET("/escalations", handlers.ListEscalations)
			admin.GET("/escalations/:issue_id", handlers.GetEscalationAdmin)
			admin.POST("/escalations/:issue_id/status", handlers.UpdateEscalationStatusAdmin)
			admin.POST("/escalations/:issue_id/reports", handlers.AddEscalationReportAdmin)
			admin.POST("/escalations/:issue_id/auto-resolve", handlers.AutoResolveEscalation)
		}
	}

	return r
}
