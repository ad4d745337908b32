package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/cuongbtq/clipstack/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusService_Status(t *testing.T) {
	completedID := uuid.NewString()
	failedID := uuid.NewString()
	runningID := uuid.NewString()
	pendingID := uuid.NewString()

	jobs := newFakeJobs()
	jobs.records[completedID] = &storage.JobRecord{
		JobID:     completedID,
		Status:    domain.JobStatusCompleted,
		OutputURL: nullString("mem://outputs/" + completedID + "-d-merged.mp4"),
	}
	jobs.records[failedID] = &storage.JobRecord{
		JobID:        failedID,
		Status:       domain.JobStatusFailed,
		ErrorMessage: nullString("max attempts exceeded"),
	}
	jobs.records[runningID] = &storage.JobRecord{JobID: runningID, Status: domain.JobStatusRunning}
	jobs.records[pendingID] = &storage.JobRecord{JobID: pendingID, Status: domain.JobStatusPending}

	svc := NewStatusService(jobs, newMemStore(), discardLogger())

	tests := []struct {
		name  string
		jobID string
		want  StatusResult
	}{
		{
			name:  "completed",
			jobID: completedID,
			want:  StatusResult{Status: "completed", URL: "https://download.test/outputs/" + completedID + "-d-merged.mp4"},
		},
		{
			name:  "failed",
			jobID: failedID,
			want:  StatusResult{Status: "failed", Error: "max attempts exceeded"},
		},
		{name: "running", jobID: runningID, want: StatusResult{Status: "processing"}},
		{name: "pending", jobID: pendingID, want: StatusResult{Status: "processing"}},
		{name: "unknown id", jobID: uuid.NewString(), want: StatusResult{Status: "processing"}},
		{name: "not a uuid", jobID: "nope", want: StatusResult{Status: "processing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Status(context.Background(), tt.jobID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusService_StoreError(t *testing.T) {
	jobs := newFakeJobs()
	jobs.getErr = errors.New("connection refused")
	svc := NewStatusService(jobs, newMemStore(), discardLogger())

	got, err := svc.Status(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, "processing", got.Status)
}
