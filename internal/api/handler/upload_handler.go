package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/cuongbtq/clipstack/internal/api/dto"
	"github.com/cuongbtq/clipstack/internal/api/service"
	"github.com/cuongbtq/clipstack/internal/config"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/gin-gonic/gin"
)

// Upload response messages
const (
	MsgQueued    = "Files uploaded and job queued"
	MsgProcessed = "Files uploaded and processed"
)

// UploadHandler handles POST /upload
type UploadHandler struct {
	logger        *slog.Logger
	mode          string
	maxUploadSize int64
	submitter     Submitter
	processor     Processor
}

// NewUploadHandler creates a new UploadHandler instance
func NewUploadHandler(deps *Dependencies) *UploadHandler {
	return &UploadHandler{
		logger:        deps.Logger,
		mode:          deps.Mode,
		maxUploadSize: deps.MaxUploadSize,
		submitter:     deps.Submitter,
		processor:     deps.Processor,
	}
}

// Upload accepts two video parts plus audioOption and layoutOption form fields
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	video1, err := formFile(c, "video1")
	if err != nil {
		h.rejectBody(c, err)
		return
	}
	video2, err := formFile(c, "video2")
	if err != nil {
		h.rejectBody(c, err)
		return
	}

	req := service.SubmitRequest{
		Video1:       video1,
		Video2:       video2,
		AudioOption:  c.PostForm("audioOption"),
		LayoutOption: c.PostForm("layoutOption"),
	}

	ctx := c.Request.Context()
	var resp dto.UploadResponse

	switch h.mode {
	case config.ModeSync:
		output, err := h.processor.CombineLocal(ctx, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp = dto.UploadResponse{Message: MsgProcessed, Output: output}
	case config.ModeHybrid:
		output, err := h.processor.CombineStored(ctx, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp = dto.UploadResponse{Message: MsgProcessed, Output: output}
	default:
		jobID, err := h.submitter.Submit(ctx, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(ContextJobID, jobID)
		resp = dto.UploadResponse{Message: MsgQueued, JobID: jobID}
	}

	c.JSON(http.StatusOK, resp)
}

// formFile returns the named part, or nil when it is absent
func formFile(c *gin.Context, name string) (*service.FilePart, error) {
	fh, err := c.FormFile(name)
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, err
		}
		return nil, nil
	}
	return filePart(fh), nil
}

func filePart(fh *multipart.FileHeader) *service.FilePart {
	return &service.FilePart{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (h *UploadHandler) rejectBody(c *gin.Context, err error) {
	h.logger.Warn("Upload rejected", slog.Any("error", err))
	c.String(http.StatusRequestEntityTooLarge, "Upload exceeds the maximum allowed size.")
}

// fail writes 400 for validation errors and 500 with the error text otherwise
func (h *UploadHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrValidation) {
		h.logger.Info("Invalid upload", slog.Any("error", err))
		c.String(http.StatusBadRequest, service.ValidationMessage(err))
		return
	}

	h.logger.Error("Upload failed", slog.Any("error", err))
	_ = c.Error(err)
	c.String(http.StatusInternalServerError, err.Error())
}
