package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/gin-gonic/gin"
)

// DownloadHandler streams stored outputs for the local blob backend
type DownloadHandler struct {
	logger *slog.Logger
	store  blob.Store
}

// NewDownloadHandler creates a new DownloadHandler instance
func NewDownloadHandler(deps *Dependencies) *DownloadHandler {
	return &DownloadHandler{logger: deps.Logger, store: deps.Downloads}
}

// Download handles GET /download/*key. Only keys under outputs/ are served.
func (h *DownloadHandler) Download(c *gin.Context) {
	key := path.Clean(strings.TrimPrefix(c.Param("key"), "/"))
	if !strings.HasPrefix(key, blob.OutputPrefix+"/") {
		c.String(http.StatusNotFound, "Not found")
		return
	}

	rc, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		h.logger.Error("Failed to open download", slog.String("key", key), slog.Any("error", err))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "video/mp4", rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + path.Base(key) + `"`,
	})
}
