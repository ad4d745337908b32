package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/clipstack/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// LoggerMiddleware logs one line per request. Upload and status requests also
// carry the job id the handler stored on the context.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []slog.Attr{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.String("path", c.Request.URL.Path),
			slog.String("ip", c.ClientIP()),
			slog.Int64("request_size", c.Request.ContentLength),
			slog.Int("response_size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
		}
		if jobID := c.GetString(handler.ContextJobID); jobID != "" {
			attrs = append(attrs, slog.String("job_id", jobID))
		}
		for _, e := range c.Errors {
			attrs = append(attrs, slog.Any("error", e.Err))
		}

		level := slog.LevelInfo
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			level = slog.LevelError
		case c.Writer.Status() >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Request.Context(), level, "HTTP Request", attrs...)
	}
}

// CORSMiddleware allows browser uploads and status polling from any origin
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
