package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the status store
	ErrJobNotFound = errors.New("job not found")

	// ErrValidation is returned when a submission is rejected before any side effect
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPayload is returned when a queue message cannot be decoded into a job
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrMaxAttemptsExceeded is returned when a job has used up its retry budget
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")
)

// ValidationError wraps ErrValidation with a client-facing message
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StorageError reports a Blob Store failure
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("blob %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blob %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ProcessingError reports a failed encode together with the tool's diagnostic output
type ProcessingError struct {
	Err        error
	Diagnostic string
}

// Error is always valid UTF-8 so it can be stored and sent as a message attribute
func (e *ProcessingError) Error() string {
	msg := "processing failed: " + e.Err.Error()
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return strings.ToValidUTF8(msg, "\uFFFD")
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// RetryableError wraps transient errors that should trigger a redelivery
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err may succeed on a later delivery
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrMaxAttemptsExceeded) {
		return false
	}
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return true
	}
	var processingErr *ProcessingError
	return errors.As(err, &processingErr)
}
