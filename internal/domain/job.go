package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Job is the unit of work passed through the queue. It is immutable once enqueued.
type Job struct {
	ID            string
	Video1Locator string
	Video2Locator string
	AudioMode     AudioMode
	LayoutMode    LayoutMode
}

// JobMessage is the queue wire format of a Job
type JobMessage struct {
	JobID        string `json:"jobId"`
	Video1Path   string `json:"video1Path"`
	Video2Path   string `json:"video2Path"`
	AudioOption  string `json:"audioOption"`
	LayoutOption string `json:"layoutOption"`
}

// ParseAudioOption maps a wire value (audio1, audio2, audioBoth) to an AudioMode
func ParseAudioOption(option string) (AudioMode, error) {
	switch option {
	case AudioOptionFirst:
		return AudioFirstOnly, nil
	case AudioOptionSecond:
		return AudioSecondOnly, nil
	case AudioOptionBoth:
		return AudioMixBoth, nil
	default:
		return "", ValidationError("invalid audio option %q", option)
	}
}

// ParseLayoutOption maps a wire value to a LayoutMode; empty means vertical
func ParseLayoutOption(option string) (LayoutMode, error) {
	switch strings.TrimSpace(option) {
	case "", string(LayoutVertical):
		return LayoutVertical, nil
	case string(LayoutHorizontal):
		return LayoutHorizontal, nil
	default:
		return "", ValidationError("invalid layout option %q", option)
	}
}

// Option returns the wire value of the audio mode
func (m AudioMode) Option() string {
	switch m {
	case AudioFirstOnly:
		return AudioOptionFirst
	case AudioSecondOnly:
		return AudioOptionSecond
	case AudioMixBoth:
		return AudioOptionBoth
	default:
		return string(m)
	}
}

// Validate checks that every field of the job is usable by a worker
func (j *Job) Validate() error {
	if _, err := uuid.Parse(j.ID); err != nil {
		return fmt.Errorf("job id %q is not a UUID: %w", j.ID, err)
	}
	if j.Video1Locator == "" || j.Video2Locator == "" {
		return fmt.Errorf("job %s: both video locators are required", j.ID)
	}
	switch j.AudioMode {
	case AudioFirstOnly, AudioSecondOnly, AudioMixBoth:
	default:
		return fmt.Errorf("job %s: unknown audio mode %q", j.ID, j.AudioMode)
	}
	switch j.LayoutMode {
	case LayoutHorizontal, LayoutVertical:
	default:
		return fmt.Errorf("job %s: unknown layout mode %q", j.ID, j.LayoutMode)
	}
	return nil
}

// Encode serializes the job to the queue wire format
func (j *Job) Encode() ([]byte, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(JobMessage{
		JobID:        j.ID,
		Video1Path:   j.Video1Locator,
		Video2Path:   j.Video2Locator,
		AudioOption:  j.AudioMode.Option(),
		LayoutOption: string(j.LayoutMode),
	})
}

// DecodeJob parses a queue payload. Any failure wraps ErrInvalidPayload so the
// worker never retries it.
func DecodeJob(body []byte) (*Job, error) {
	var msg JobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	audio, err := ParseAudioOption(msg.AudioOption)
	if err != nil {
		return &Job{ID: msg.JobID}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	layout, err := ParseLayoutOption(msg.LayoutOption)
	if err != nil {
		return &Job{ID: msg.JobID}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	job := &Job{
		ID:            msg.JobID,
		Video1Locator: msg.Video1Path,
		Video2Locator: msg.Video2Path,
		AudioMode:     audio,
		LayoutMode:    layout,
	}
	if err := job.Validate(); err != nil {
		return job, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return job, nil
}
