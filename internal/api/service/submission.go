package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/cuongbtq/clipstack/internal/metrics"
	"github.com/cuongbtq/clipstack/internal/queue"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SubmissionService accepts uploads and enqueues combine jobs
type SubmissionService struct {
	store   blob.Store
	jobs    JobStore
	queue   queue.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSubmissionService creates a SubmissionService
func NewSubmissionService(store blob.Store, jobs JobStore, q queue.Queue, m *metrics.Metrics, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{
		store:   store,
		jobs:    jobs,
		queue:   q,
		metrics: m,
		logger:  logger,
	}
}

// Submit stores both inputs, records the job and enqueues it. It returns the
// job id without waiting for processing.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	opts, err := validate(req)
	if err != nil {
		s.countFailure("validation")
		return "", err
	}

	jobID := uuid.NewString()
	logger := s.logger.With(slog.String("job_id", jobID))

	locators, err := putInputs(ctx, s.store, jobID, req)
	if err != nil {
		s.countFailure("storage")
		logger.Error("Failed to store inputs", slog.Any("error", err))
		return "", err
	}

	job := &domain.Job{
		ID:            jobID,
		Video1Locator: locators[0],
		Video2Locator: locators[1],
		AudioMode:     opts.audio,
		LayoutMode:    opts.layout,
	}

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		s.countFailure("status")
		logger.Error("Failed to create job record", slog.Any("error", err))
		return "", err
	}

	body, err := job.Encode()
	if err != nil {
		s.countFailure("encode")
		return "", fmt.Errorf("failed to encode job: %w", err)
	}

	messageID, err := s.queue.Send(ctx, body)
	if err != nil {
		s.countFailure("enqueue")
		logger.Error("Failed to enqueue job", slog.Any("error", err))
		if markErr := s.jobs.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			logger.Error("Failed to mark job failed", slog.Any("error", markErr))
		}
		return "", err
	}

	if s.metrics != nil {
		s.metrics.JobsSubmitted.Inc()
	}

	logger.Info("Job submitted",
		slog.String("message_id", messageID),
		slog.String("audio", job.AudioMode.Option()),
		slog.String("layout", string(job.LayoutMode)),
	)

	return jobID, nil
}

func (s *SubmissionService) countFailure(reason string) {
	if s.metrics != nil {
		s.metrics.UploadFailures.WithLabelValues(reason).Inc()
	}
}

// putInputs writes both parts to the store concurrently. Any failure cancels
// the other write.
func putInputs(ctx context.Context, store blob.Store, jobID string, req SubmitRequest) ([2]string, error) {
	var locators [2]string

	g, gctx := errgroup.WithContext(ctx)
	for i, part := range []*FilePart{req.Video1, req.Video2} {
		g.Go(func() error {
			f, err := part.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", part.Filename, err)
			}
			defer f.Close()

			locator, err := store.Put(gctx, blob.InputKey(jobID, i+1, part.Filename), f, contentType(part))
			if err != nil {
				return err
			}
			locators[i] = locator
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return locators, err
	}
	return locators, nil
}
