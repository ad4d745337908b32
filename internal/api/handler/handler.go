package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/clipstack/internal/api/service"
	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/metrics"
)

// Submitter enqueues uploads for the worker
type Submitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (string, error)
}

// Processor combines uploads within the request
type Processor interface {
	CombineLocal(ctx context.Context, req service.SubmitRequest) (string, error)
	CombineStored(ctx context.Context, req service.SubmitRequest) (string, error)
}

// StatusReader reports job progress
type StatusReader interface {
	Status(ctx context.Context, jobID string) (service.StatusResult, error)
}

// ContextJobID is the gin context key under which handlers store the job id
// for request logging
const ContextJobID = "job_id"

// HealthChecker reports whether a backing service is reachable
type HealthChecker func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	ServiceName   string
	Mode          string
	MaxUploadSize int64
	Submitter     Submitter
	Processor     Processor
	Status        StatusReader
	Downloads     blob.Store
	Metrics       *metrics.Metrics
	HealthChecks  map[string]HealthChecker
}
