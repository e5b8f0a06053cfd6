package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/api/handlers"
	"github.com/yourusername/yt-download-go/api/middleware"
	"github.com/yourusername/yt-download-go/internal/app"
	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/progress"
)

// Services bundles what the HTTP layer needs from the application
type Services struct {
	Orchestrator *app.DownloadOrchestrator
	Lister       *app.ResolutionLister
	Registry     *progress.Registry
	Config       *domain.Config
}

// SetupRouter sets up the HTTP router
func SetupRouter(svc Services, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log.Named("http")))
	router.Use(middleware.Recovery(log.Named("http")))
	router.Use(middleware.CORS(svc.Config.Server.AllowedOrigins...))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(svc.Registry, &svc.Config.Worker)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	youtubeHandler := handlers.NewYoutubeHandler(svc.Orchestrator, svc.Lister, svc.Registry, log.Named("youtube"))
	progressHandler := handlers.NewProgressHandler(svc.Registry, log.Named("stream"))

	youtube := router.Group("/youtube")
	{
		youtube.GET("/resolutions", youtubeHandler.Resolutions)
		youtube.POST("/download", youtubeHandler.Download)

		youtube.POST("/downloads", youtubeHandler.StartDownload)
		youtube.GET("/downloads/:id", youtubeHandler.GetDownload)

		youtube.GET("/progress", progressHandler.Stream)
		youtube.GET("/progress/ws", progressHandler.StreamWebSocket)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
