package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/facefinder/internal/api/handler"
	"github.com/timmy/facefinder/internal/api/middleware"
	"github.com/timmy/facefinder/internal/config"
)

// Handlers groups the handlers mounted by SetupRouter.
type Handlers struct {
	Health *handler.HealthHandler
	Ingest *handler.IngestHandler
	Search *handler.SearchHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h Handlers, cfg config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/ingest", h.Ingest.Enqueue)
		v1.POST("/ingest/direct", h.Ingest.IngestDirect)

		v1.POST("/search", h.Search.SearchByURL)
		v1.POST("/search/image", h.Search.SearchByImage)
	}

	return r
}
