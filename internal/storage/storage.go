package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/jmoiron/sqlx"
)

// JobRecord is a row of the jobs table
type JobRecord struct {
	JobID           string         `db:"job_id"`
	Status          string         `db:"status"`
	AudioOption     string         `db:"audio_option"`
	LayoutOption    string         `db:"layout_option"`
	Video1URL       string         `db:"video1_url"`
	Video2URL       string         `db:"video2_url"`
	OutputURL       sql.NullString `db:"output_url"`
	ErrorMessage    sql.NullString `db:"error_message"`
	Attempts        int            `db:"attempts"`
	WorkerID        sql.NullString `db:"worker_id"`
	LastHeartbeatAt sql.NullTime   `db:"last_heartbeat_at"`
	StartedAt       sql.NullTime   `db:"started_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Storage is the PostgreSQL job status store
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// CreateJob inserts a PENDING row for a freshly submitted job
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, status, audio_option, layout_option,
			video1_url, video2_url, attempts, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, 0, NOW(), NOW()
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		domain.JobStatusPending,
		job.AudioMode.Option(),
		string(job.LayoutMode),
		job.Video1Locator,
		job.Video2Locator,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// ClaimJob records that workerID started a delivery of job and returns the
// attempt number of this delivery. A missing row is created so that messages
// enqueued by other producers are still tracked. A COMPLETED job keeps its
// status.
func (s *Storage) ClaimJob(ctx context.Context, job *domain.Job, workerID string) (int, error) {
	query := `
		INSERT INTO jobs (
			job_id, status, audio_option, layout_option,
			video1_url, video2_url, attempts, worker_id,
			started_at, last_heartbeat_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, 1, $7,
			NOW(), NOW(), NOW(), NOW()
		)
		ON CONFLICT (job_id) DO UPDATE SET
			status = CASE WHEN jobs.status = $8 THEN jobs.status ELSE EXCLUDED.status END,
			attempts = jobs.attempts + 1,
			worker_id = EXCLUDED.worker_id,
			started_at = COALESCE(jobs.started_at, NOW()),
			last_heartbeat_at = NOW(),
			updated_at = NOW()
		RETURNING attempts
	`

	var attempts int
	err := s.db.QueryRowxContext(ctx, query,
		job.ID,
		domain.JobStatusRunning,
		job.AudioMode.Option(),
		string(job.LayoutMode),
		job.Video1Locator,
		job.Video2Locator,
		workerID,
		domain.JobStatusCompleted,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Debug("Job claimed",
		slog.String("job_id", job.ID),
		slog.String("worker_id", workerID),
		slog.Int("attempt", attempts),
	)

	return attempts, nil
}

// Heartbeat updates last_heartbeat_at for a running job
func (s *Storage) Heartbeat(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET last_heartbeat_at = NOW(),
			updated_at = NOW()
		WHERE job_id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, jobID); err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	return nil
}

// MarkRetrying puts a job back to PENDING after a failed attempt that will be
// redelivered
func (s *Storage) MarkRetrying(ctx context.Context, jobID, errMsg string) error {
	return s.setStatus(ctx, jobID, domain.JobStatusPending, errMsg)
}

// MarkFailed records a terminal failure
func (s *Storage) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	return s.setStatus(ctx, jobID, domain.JobStatusFailed, errMsg)
}

func (s *Storage) setStatus(ctx context.Context, jobID, status, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1::text,
			error_message = $2,
			completed_at = CASE WHEN $1::text = $3::text THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		WHERE job_id = $4
		  AND status <> $5
	`

	// error_message is TEXT; Postgres rejects invalid UTF-8
	errMsg = strings.ToValidUTF8(errMsg, "\uFFFD")

	_, err := s.db.ExecContext(ctx, query, status, errMsg, domain.JobStatusFailed, jobID, domain.JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// MarkCompleted records the output locator of a finished job
func (s *Storage) MarkCompleted(ctx context.Context, jobID, outputURL string) error {
	query := `
		UPDATE jobs
		SET status = $1,
			output_url = $2,
			error_message = NULL,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE job_id = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, outputURL, jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", domain.JobStatusCompleted),
	)

	return nil
}

// GetJob returns the status row of a job
func (s *Storage) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	query := `
		SELECT
			job_id, status, audio_option, layout_option,
			video1_url, video2_url, output_url, error_message,
			attempts, worker_id, last_heartbeat_at, started_at,
			completed_at, created_at, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	var job JobRecord
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}
