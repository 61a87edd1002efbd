package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/suno-sync-go/api/handlers"
	"github.com/yourusername/suno-sync-go/api/middleware"
	"github.com/yourusername/suno-sync-go/internal/app"
	"github.com/yourusername/suno-sync-go/internal/domain"
)

// SetupRouter sets up the HTTP router for the status API
func SetupRouter(
	reconciler *app.Reconciler,
	attempts domain.AttemptRepository,
	outDir string,
	log *zap.Logger,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Health endpoint
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		statusHandler := handlers.NewStatusHandler(reconciler, attempts, outDir, log)
		v1.GET("/report", statusHandler.GetReport)
		v1.GET("/missing", statusHandler.GetMissing)
		v1.GET("/extra", statusHandler.GetExtra)
		v1.GET("/attempts", statusHandler.GetStats)
		v1.GET("/history", statusHandler.GetHistory)
	}

	return router
}
