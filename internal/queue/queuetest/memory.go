// Package queuetest provides an in-memory queue.Queue for tests.
package queuetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuongbtq/clipstack/internal/queue"
	"github.com/google/uuid"
)

// DeadLetter is a message parked by DeadLetter
type DeadLetter struct {
	Message queue.Message
	Reason  string
}

type entry struct {
	id        string
	body      []byte
	receipt   string
	visibleAt time.Time
	receives  int
}

// Queue is an in-memory queue with visibility-timeout semantics
type Queue struct {
	mu          sync.Mutex
	visibility  time.Duration
	now         func() time.Time
	entries     []*entry
	deleted     []string
	released    []time.Duration
	extended    int
	deadLetters []DeadLetter

	// SendErr and DeleteErr, when set, are returned by Send and Delete
	SendErr   error
	DeleteErr error
}

// New creates an empty queue. Received messages stay invisible for visibility.
func New(visibility time.Duration) *Queue {
	return &Queue{visibility: visibility, now: time.Now}
}

func (q *Queue) Send(ctx context.Context, body []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.SendErr != nil {
		return "", q.SendErr
	}

	id := uuid.NewString()
	q.entries = append(q.entries, &entry{id: id, body: append([]byte(nil), body...), visibleAt: q.now()})
	return id, nil
}

func (q *Queue) Receive(ctx context.Context, max int) ([]queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var msgs []queue.Message
	for _, e := range q.entries {
		if len(msgs) >= max {
			break
		}
		if e.visibleAt.After(now) {
			continue
		}
		e.receives++
		e.receipt = fmt.Sprintf("%s#%d", e.id, e.receives)
		e.visibleAt = now.Add(q.visibility)
		msgs = append(msgs, queue.Message{ID: e.id, Body: e.body, Receipt: e.receipt})
	}
	return msgs, nil
}

func (q *Queue) Delete(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.DeleteErr != nil {
		return q.DeleteErr
	}

	i, err := q.find(msg)
	if err != nil {
		return err
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.deleted = append(q.deleted, msg.ID)
	return nil
}

func (q *Queue) Release(ctx context.Context, msg queue.Message, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, err := q.find(msg)
	if err != nil {
		return err
	}
	q.entries[i].visibleAt = q.now().Add(delay)
	q.released = append(q.released, delay)
	return nil
}

func (q *Queue) Extend(ctx context.Context, msg queue.Message, d time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, err := q.find(msg)
	if err != nil {
		return err
	}
	q.entries[i].visibleAt = q.now().Add(d)
	q.extended++
	return nil
}

func (q *Queue) DeadLetter(ctx context.Context, msg queue.Message, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, err := q.find(msg)
	if err != nil {
		return err
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.deadLetters = append(q.deadLetters, DeadLetter{Message: msg, Reason: reason})
	return nil
}

// find locates the entry owning the current receipt of msg
func (q *Queue) find(msg queue.Message) (int, error) {
	for i, e := range q.entries {
		if e.id == msg.ID {
			if e.receipt != msg.Receipt {
				return -1, fmt.Errorf("stale receipt %q for message %s", msg.Receipt, msg.ID)
			}
			return i, nil
		}
	}
	return -1, fmt.Errorf("message %s not found", msg.ID)
}

// MakeVisible expires every visibility timeout, simulating a lapse
func (q *Queue) MakeVisible() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for _, e := range q.entries {
		e.visibleAt = now
	}
}

// Len returns the number of messages not yet deleted or dead-lettered
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Deleted returns the ids of deleted messages, in order
func (q *Queue) Deleted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

// Released returns the delays passed to Release, in order
func (q *Queue) Released() []time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]time.Duration(nil), q.released...)
}

// Extended returns how many times Extend succeeded
func (q *Queue) Extended() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.extended
}

// DeadLetters returns the dead-lettered messages
func (q *Queue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.deadLetters...)
}

var _ queue.Queue = (*Queue)(nil)
