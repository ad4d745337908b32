package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/combiner"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/cuongbtq/clipstack/internal/metrics"
	"github.com/cuongbtq/clipstack/internal/queue"
	"github.com/cuongbtq/clipstack/internal/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// JobStore is the part of the status store used by workers
type JobStore interface {
	ClaimJob(ctx context.Context, job *domain.Job, workerID string) (int, error)
	Heartbeat(ctx context.Context, jobID string) error
	MarkRetrying(ctx context.Context, jobID, errMsg string) error
	MarkCompleted(ctx context.Context, jobID, outputURL string) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
}

// Combiner runs the media combine step
type Combiner interface {
	Combine(ctx context.Context, req combiner.Request) error
}

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	WorkerID          string
	Queue             queue.Queue
	Store             blob.Store
	Jobs              JobStore
	Combiner          Combiner
	Metrics           *metrics.Metrics
	Concurrency       int
	PollInterval      time.Duration
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	VisibilityTimeout time.Duration
	TempDir           string
	Retry             retry.Policy // redelivery budget per job
	UploadRetry       retry.Policy // in-process retries of the output upload
}

// Worker polls the queue and combines one job per free slot
type Worker struct {
	logger            *slog.Logger
	workerID          string
	queue             queue.Queue
	store             blob.Store
	jobs              JobStore
	combiner          Combiner
	metrics           *metrics.Metrics
	concurrency       int
	pollInterval      time.Duration
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	visibilityTimeout time.Duration
	tempDir           string
	retry             retry.Policy
	uploadRetry       retry.Policy

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		logger:            cfg.Logger,
		workerID:          cfg.WorkerID,
		queue:             cfg.Queue,
		store:             cfg.Store,
		jobs:              cfg.Jobs,
		combiner:          cfg.Combiner,
		metrics:           cfg.Metrics,
		concurrency:       cfg.Concurrency,
		pollInterval:      cfg.PollInterval,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		visibilityTimeout: cfg.VisibilityTimeout,
		tempDir:           cfg.TempDir,
		retry:             cfg.Retry,
		uploadRetry:       cfg.UploadRetry,
	}

	if w.workerID == "" {
		w.workerID = "worker-" + uuid.NewString()[:8]
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 100 * time.Millisecond
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 10 * time.Minute
	}
	if w.visibilityTimeout <= 0 {
		w.visibilityTimeout = 60 * time.Second
	}
	if w.heartbeatInterval <= 0 {
		w.heartbeatInterval = w.visibilityTimeout / 2
	}
	if w.uploadRetry.MaxAttempts == 0 {
		w.uploadRetry = retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2,
		}
	}

	w.sem = semaphore.NewWeighted(int64(w.concurrency))
	return w
}

// ID returns the identifier recorded on claimed jobs
func (w *Worker) ID() string {
	return w.workerID
}

// Start polls the queue until ctx is canceled. Jobs already running are not
// canceled; use Wait to drain them.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("poll_interval", w.pollInterval),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	w.pollLoop(ctx)

	w.logger.Info("Worker context canceled, stopped polling")
	return nil
}

// Wait blocks until in-flight jobs finish or ctx is done
func (w *Worker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for in-flight jobs: %w", ctx.Err())
	}
}
