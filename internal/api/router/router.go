package router

import (
	"github.com/cuongbtq/clipstack/internal/api/handler"
	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", handler.Health(deps))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	uploadHandler := handler.NewUploadHandler(deps)

	// POST /upload - Submit two clips for combining
	r.POST("/upload", uploadHandler.Upload)

	// GET /status/:jobId - Report job progress (async mode)
	if deps.Status != nil {
		statusHandler := handler.NewStatusHandler(deps)
		r.GET("/status/:jobId", statusHandler.GetStatus)
	}

	// GET /download/*key - Serve outputs from the local blob store
	if deps.Downloads != nil {
		downloadHandler := handler.NewDownloadHandler(deps)
		r.GET(blob.DownloadRoute+"*key", downloadHandler.Download)
	}

	return r
}
