package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/combiner"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/cuongbtq/clipstack/internal/metrics"
	"github.com/cuongbtq/clipstack/internal/queue"
	"github.com/cuongbtq/clipstack/internal/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// handle runs one delivery from decode to acknowledge, release or dead-letter
func (w *Worker) handle(ctx context.Context, msg queue.Message) {
	start := time.Now()
	if w.metrics != nil {
		w.metrics.ActiveJobs.Inc()
		defer w.metrics.ActiveJobs.Dec()
	}

	job, err := domain.DecodeJob(msg.Body)
	if err != nil {
		w.logger.Error("Invalid job payload",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
		if job != nil {
			if _, parseErr := uuid.Parse(job.ID); parseErr == nil {
				w.markFailed(ctx, job.ID, err)
			}
		}
		w.deadLetter(ctx, msg, err)
		w.observe(metrics.OutcomeFailed, start)
		return
	}

	logger := w.logger.With(
		slog.String("job_id", job.ID),
		slog.String("message_id", msg.ID),
	)

	attempt, err := w.jobs.ClaimJob(ctx, job, w.workerID)
	if err != nil {
		// The status store is unreachable; let the message come back later.
		logger.Error("Failed to claim job", slog.Any("error", err))
		w.release(ctx, msg, w.retry.Backoff(1))
		w.observe(metrics.OutcomeRetried, start)
		return
	}

	logger = logger.With(slog.Int("attempt", attempt))
	logger.Info("Processing job",
		slog.String("worker_id", w.workerID),
		slog.String("audio", string(job.AudioMode)),
		slog.String("layout", string(job.LayoutMode)),
	)

	stopHeartbeat := w.startHeartbeat(ctx, msg, job.ID)
	locator, err := w.process(ctx, job)
	if err == nil {
		if markErr := w.jobs.MarkCompleted(ctx, job.ID, locator); markErr != nil {
			err = domain.NewRetryableError(fmt.Errorf("failed to record completion: %w", markErr))
		}
	}
	stopHeartbeat()

	if err != nil {
		w.fail(ctx, logger, msg, job, attempt, err, start)
		return
	}

	if delErr := w.queue.Delete(ctx, msg); delErr != nil {
		logger.Error("Failed to delete message", slog.Any("error", delErr))
	}

	logger.Info("Job completed successfully",
		slog.String("output", locator),
		slog.Duration("elapsed", time.Since(start)),
	)
	w.observe(metrics.OutcomeCompleted, start)
}

// process downloads the inputs into a private temp dir, combines them and
// uploads the result under a delivery-unique key
func (w *Worker) process(ctx context.Context, job *domain.Job) (string, error) {
	dir, err := os.MkdirTemp(w.tempDir, "clipstack-"+job.ID+"-")
	if err != nil {
		return "", domain.NewRetryableError(fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	input1 := filepath.Join(dir, "video1"+locatorExt(job.Video1Locator))
	input2 := filepath.Join(dir, "video2"+locatorExt(job.Video2Locator))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := blob.Download(gctx, w.store, job.Video1Locator, input1)
		return err
	})
	g.Go(func() error {
		_, err := blob.Download(gctx, w.store, job.Video2Locator, input2)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("failed to download inputs: %w", err)
	}

	output := filepath.Join(dir, "merged.mp4")
	combineCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	started := time.Now()
	err = w.combiner.Combine(combineCtx, combiner.Request{
		Video1: input1,
		Video2: input2,
		Output: output,
		Layout: job.LayoutMode,
		Audio:  job.AudioMode,
	})
	cancel()
	if w.metrics != nil {
		w.metrics.CombineDuration.WithLabelValues(string(job.LayoutMode)).Observe(time.Since(started).Seconds())
	}
	if err != nil {
		return "", err
	}

	key := blob.OutputKey(job.ID, uuid.NewString())
	var locator string
	err = retry.Do(ctx, w.uploadRetry, func(ctx context.Context) error {
		loc, err := blob.Upload(ctx, w.store, key, output, "video/mp4")
		if err != nil {
			return err
		}
		locator = loc
		return nil
	})
	if err != nil {
		return "", domain.NewRetryableError(fmt.Errorf("failed to upload output: %w", err))
	}

	return locator, nil
}

// fail releases the message for another attempt or parks it in the dead-letter
// destination once the error is permanent or the budget is spent
func (w *Worker) fail(ctx context.Context, logger *slog.Logger, msg queue.Message, job *domain.Job, attempt int, err error, start time.Time) {
	if domain.IsRetryable(err) && !w.retry.Exhausted(attempt) {
		delay := w.retry.Backoff(attempt)
		logger.Warn("Job failed, will be retried",
			slog.Duration("retry_after", delay),
			slog.Any("error", err),
		)

		if markErr := w.jobs.MarkRetrying(ctx, job.ID, err.Error()); markErr != nil {
			logger.Error("Failed to record retry", slog.Any("error", markErr))
		}
		w.release(ctx, msg, delay)
		w.observe(metrics.OutcomeRetried, start)
		return
	}

	if domain.IsRetryable(err) {
		err = fmt.Errorf("%w: %v", domain.ErrMaxAttemptsExceeded, err)
	}
	logger.Error("Job failed permanently", slog.Any("error", err))

	w.markFailed(ctx, job.ID, err)
	w.deadLetter(ctx, msg, err)
	w.observe(metrics.OutcomeFailed, start)
}

// startHeartbeat keeps the message invisible and the status row fresh until
// the returned stop func is called
func (w *Worker) startHeartbeat(ctx context.Context, msg queue.Message, jobID string) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(w.heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.queue.Extend(ctx, msg, w.visibilityTimeout); err != nil && ctx.Err() == nil {
					w.logger.Warn("Failed to extend message visibility",
						slog.String("job_id", jobID),
						slog.Any("error", err),
					)
				}
				if err := w.jobs.Heartbeat(ctx, jobID); err != nil && ctx.Err() == nil {
					w.logger.Warn("Failed to update job heartbeat",
						slog.String("job_id", jobID),
						slog.Any("error", err),
					)
				}
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (w *Worker) release(ctx context.Context, msg queue.Message, delay time.Duration) {
	if err := w.queue.Release(ctx, msg, delay); err != nil {
		w.logger.Error("Failed to release message",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}
}

func (w *Worker) deadLetter(ctx context.Context, msg queue.Message, cause error) {
	if err := w.queue.DeadLetter(ctx, msg, cause.Error()); err != nil {
		w.logger.Error("Failed to dead-letter message",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}
}

func (w *Worker) markFailed(ctx context.Context, jobID string, cause error) {
	if err := w.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		w.logger.Error("Failed to update job status to FAILED",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}
}

func (w *Worker) observe(outcome string, start time.Time) {
	if w.metrics != nil {
		w.metrics.ObserveJob(outcome, time.Since(start))
	}
}

// locatorExt returns the lower-cased extension of a locator's path
func locatorExt(locator string) string {
	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	return strings.ToLower(path.Ext(locator))
}
