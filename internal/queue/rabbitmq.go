package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const jsonContentType = "application/json"

// RabbitClient is the subset of *rabbitmq.Client the queue uses
type RabbitClient interface {
	Publish(ctx context.Context, body []byte, contentType string) error
	PublishDelayed(ctx context.Context, body []byte, contentType string, delay time.Duration) error
	HasRetryQueue() bool
	Get() (amqp.Delivery, bool, error)
	Ack(tag uint64) error
	Nack(tag uint64, requeue bool) error
}

// RabbitQueue is a Queue backed by RabbitMQ. Unacked deliveries stay
// invisible for as long as the channel is open, so Extend is a no-op.
// Release with a delay republishes through the client's retry queue; without
// one the delivery is requeued immediately.
type RabbitQueue struct {
	client RabbitClient
}

// NewRabbitQueue creates a RabbitQueue
func NewRabbitQueue(client RabbitClient) *RabbitQueue {
	return &RabbitQueue{client: client}
}

func (q *RabbitQueue) Send(ctx context.Context, body []byte) (string, error) {
	if err := q.client.Publish(ctx, body, jsonContentType); err != nil {
		return "", err
	}
	return "", nil
}

func (q *RabbitQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}

	var msgs []Message
	for len(msgs) < max {
		if err := ctx.Err(); err != nil {
			return msgs, err
		}

		d, ok, err := q.client.Get()
		if err != nil {
			return msgs, err
		}
		if !ok {
			break
		}

		id := d.MessageId
		if id == "" {
			id = strconv.FormatUint(d.DeliveryTag, 10)
		}
		msgs = append(msgs, Message{
			ID:      id,
			Body:    d.Body,
			Receipt: strconv.FormatUint(d.DeliveryTag, 10),
		})
	}
	return msgs, nil
}

func (q *RabbitQueue) Delete(ctx context.Context, msg Message) error {
	tag, err := parseTag(msg)
	if err != nil {
		return err
	}
	return q.client.Ack(tag)
}

func (q *RabbitQueue) Release(ctx context.Context, msg Message, delay time.Duration) error {
	tag, err := parseTag(msg)
	if err != nil {
		return err
	}

	if delay <= 0 || !q.client.HasRetryQueue() {
		return q.client.Nack(tag, true)
	}

	// The copy is parked before the original is acked, so a failure here
	// leaves the delivery requeued instead of lost.
	if err := q.client.PublishDelayed(ctx, msg.Body, jsonContentType, delay); err != nil {
		if nackErr := q.client.Nack(tag, true); nackErr != nil {
			return errors.Join(err, nackErr)
		}
		return fmt.Errorf("delayed release failed, requeued immediately: %w", err)
	}
	return q.client.Ack(tag)
}

func (q *RabbitQueue) Extend(ctx context.Context, msg Message, d time.Duration) error {
	return nil
}

func (q *RabbitQueue) DeadLetter(ctx context.Context, msg Message, reason string) error {
	tag, err := parseTag(msg)
	if err != nil {
		return err
	}
	return q.client.Nack(tag, false)
}

func parseTag(msg Message) (uint64, error) {
	tag, err := strconv.ParseUint(msg.Receipt, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delivery tag %q: %w", msg.Receipt, err)
	}
	return tag, nil
}
