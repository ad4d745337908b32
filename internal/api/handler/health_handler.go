package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/cuongbtq/clipstack/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// Health handles GET /health
func Health(deps *Dependencies) gin.HandlerFunc {
	names := make([]string, 0, len(deps.HealthChecks))
	for name := range deps.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		for _, name := range names {
			if err := deps.HealthChecks[name](ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
					Status:  "unhealthy",
					Service: deps.ServiceName,
					Mode:    deps.Mode,
					Error:   name + ": " + err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, dto.HealthResponse{
			Status:  "healthy",
			Service: deps.ServiceName,
			Mode:    deps.Mode,
		})
	}
}
