package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cuongbtq/clipstack/internal/combiner"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/cuongbtq/clipstack/internal/storage"
	"github.com/gabriel-vasile/mimetype"
)

// Client-facing validation messages
const (
	MsgMissingFiles  = "Please upload two files."
	MsgInvalidAudio  = "Invalid audio option selected."
	MsgInvalidLayout = "Invalid layout option selected."
	MsgNotVideo      = "Only video files are allowed."
)

// JobStore is the part of the status store used by the API
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
	GetJob(ctx context.Context, jobID string) (*storage.JobRecord, error)
}

// Combiner runs the media combine step
type Combiner interface {
	Combine(ctx context.Context, req combiner.Request) error
}

// FilePart is one uploaded file
type FilePart struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// SubmitRequest is a parsed upload
type SubmitRequest struct {
	Video1       *FilePart
	Video2       *FilePart
	AudioOption  string
	LayoutOption string
}

type options struct {
	audio  domain.AudioMode
	layout domain.LayoutMode
}

// validate checks a request without side effects
func validate(req SubmitRequest) (options, error) {
	if req.Video1 == nil || req.Video2 == nil {
		return options{}, domain.ValidationError(MsgMissingFiles)
	}

	audio, err := domain.ParseAudioOption(req.AudioOption)
	if err != nil {
		return options{}, domain.ValidationError(MsgInvalidAudio)
	}

	layout, err := domain.ParseLayoutOption(req.LayoutOption)
	if err != nil {
		return options{}, domain.ValidationError(MsgInvalidLayout)
	}

	for _, part := range []*FilePart{req.Video1, req.Video2} {
		if err := checkVideo(part); err != nil {
			return options{}, err
		}
	}

	return options{audio: audio, layout: layout}, nil
}

// checkVideo accepts a declared video/* type, otherwise sniffs the content
func checkVideo(part *FilePart) error {
	if strings.HasPrefix(part.ContentType, "video/") {
		return nil
	}

	f, err := part.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", part.Filename, err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("failed to detect type of %s: %w", part.Filename, err)
	}
	if !strings.HasPrefix(mt.String(), "video/") {
		return domain.ValidationError(MsgNotVideo)
	}
	return nil
}

// contentType picks the type stored alongside an uploaded part
func contentType(part *FilePart) string {
	if strings.HasPrefix(part.ContentType, "video/") {
		return part.ContentType
	}
	return "application/octet-stream"
}

// ValidationMessage returns the client-facing text of a validation error
func ValidationMessage(err error) string {
	if !errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
}
