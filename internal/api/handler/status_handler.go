package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/clipstack/internal/api/dto"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/gin-gonic/gin"
)

// StatusHandler handles GET /status/:jobId
type StatusHandler struct {
	logger *slog.Logger
	status StatusReader
}

// NewStatusHandler creates a new StatusHandler instance
func NewStatusHandler(deps *Dependencies) *StatusHandler {
	return &StatusHandler{logger: deps.Logger, status: deps.Status}
}

// GetStatus always answers 200. Lookup failures are logged and reported as
// processing.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("jobId")
	c.Set(ContextJobID, jobID)

	result, err := h.status.Status(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job status",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusOK, dto.StatusResponse{Status: domain.ReportProcessing})
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{
		Status: result.Status,
		URL:    result.URL,
		Error:  result.Error,
	})
}
