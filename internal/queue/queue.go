package queue

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed queue
var ErrClosed = errors.New("queue closed")

// Message is one delivery of a queued job. Receipt identifies this delivery
// and is only meaningful to the queue that produced it.
type Message struct {
	ID      string
	Body    []byte
	Receipt string
}

// Queue is an at-least-once job queue. A received message stays invisible
// to other receivers until it is deleted, released, or its visibility lapses.
type Queue interface {
	Send(ctx context.Context, body []byte) (string, error)
	Receive(ctx context.Context, max int) ([]Message, error)
	Delete(ctx context.Context, msg Message) error
	// Release makes msg visible again after delay
	Release(ctx context.Context, msg Message, delay time.Duration) error
	// Extend pushes back the visibility deadline of an in-flight message
	Extend(ctx context.Context, msg Message, d time.Duration) error
	// DeadLetter removes msg from the queue and parks it for inspection
	DeadLetter(ctx context.Context, msg Message, reason string) error
}

var (
	_ Queue = (*SQSQueue)(nil)
	_ Queue = (*RabbitQueue)(nil)
)
