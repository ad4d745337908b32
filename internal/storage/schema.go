package storage

import (
	"context"
	"fmt"
)

// Schema creates the jobs table used by the status store
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id            UUID PRIMARY KEY,
	status            TEXT NOT NULL,
	audio_option      TEXT NOT NULL,
	layout_option     TEXT NOT NULL,
	video1_url        TEXT NOT NULL,
	video2_url        TEXT NOT NULL,
	output_url        TEXT,
	error_message     TEXT,
	attempts          INTEGER NOT NULL DEFAULT 0,
	worker_id         TEXT,
	last_heartbeat_at TIMESTAMPTZ,
	started_at        TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
`

// EnsureSchema creates the jobs table if it does not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
