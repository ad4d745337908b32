package domain

// Job status constants
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

// Status values reported to clients by GET /status/:jobId
const (
	ReportCompleted  = "completed"
	ReportProcessing = "processing"
	ReportFailed     = "failed"
)

// AudioMode selects which audio track ends up in the combined output
type AudioMode string

const (
	AudioFirstOnly  AudioMode = "first_only"
	AudioSecondOnly AudioMode = "second_only"
	AudioMixBoth    AudioMode = "mix_both"
)

// LayoutMode selects how the two clips are stacked
type LayoutMode string

const (
	// LayoutHorizontal places the clips top/bottom at 1080x960 each
	LayoutHorizontal LayoutMode = "horizontal"
	// LayoutVertical places the clips left/right at 540x1920 each
	LayoutVertical LayoutMode = "vertical"
)

// Wire values used by the HTTP form fields and the queue payload
const (
	AudioOptionFirst  = "audio1"
	AudioOptionSecond = "audio2"
	AudioOptionBoth   = "audioBoth"
)
