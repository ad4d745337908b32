package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/google/uuid"
)

// StatusResult is the client view of a job
type StatusResult struct {
	Status string
	URL    string
	Error  string
}

// StatusService reports job progress from the status store
type StatusService struct {
	jobs   JobStore
	store  blob.Store
	logger *slog.Logger
}

// NewStatusService creates a StatusService
func NewStatusService(jobs JobStore, store blob.Store, logger *slog.Logger) *StatusService {
	return &StatusService{jobs: jobs, store: store, logger: logger}
}

// Status maps the stored state of jobID to completed, failed or processing.
// Unknown ids are reported as processing.
func (s *StatusService) Status(ctx context.Context, jobID string) (StatusResult, error) {
	processing := StatusResult{Status: domain.ReportProcessing}

	if _, err := uuid.Parse(jobID); err != nil {
		return processing, nil
	}

	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return processing, nil
		}
		return processing, err
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		locator := job.OutputURL.String
		url, err := s.store.DownloadURL(ctx, locator)
		if err != nil {
			s.logger.Warn("Failed to build download URL, returning locator",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			url = locator
		}
		return StatusResult{Status: domain.ReportCompleted, URL: url}, nil
	case domain.JobStatusFailed:
		return StatusResult{Status: domain.ReportFailed, Error: job.ErrorMessage.String}, nil
	default:
		return processing, nil
	}
}
