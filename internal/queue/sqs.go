package queue

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	// maxVisibility is the largest visibility timeout SQS accepts (12h)
	maxVisibility = 12 * time.Hour
	// MaxWaitTime is the longest receive long-poll SQS accepts
	MaxWaitTime = 20 * time.Second
)

// SQSAPI is the subset of *sqs.Client the queue uses
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// SQSOptions configures an SQSQueue
type SQSOptions struct {
	QueueURL           string
	DeadLetterQueueURL string
	VisibilityTimeout  time.Duration
	WaitTime           time.Duration
}

// SQSQueue is a Queue backed by Amazon SQS
type SQSQueue struct {
	client SQSAPI
	opts   SQSOptions
}

// NewSQSQueue creates an SQSQueue
func NewSQSQueue(client SQSAPI, opts SQSOptions) *SQSQueue {
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 60 * time.Second
	}
	return &SQSQueue{client: client, opts: opts}
}

// NewSQSQueueFromConfig creates an SQSQueue with a client built from cfg
func NewSQSQueueFromConfig(cfg aws.Config, opts SQSOptions) *SQSQueue {
	return NewSQSQueue(sqs.NewFromConfig(cfg), opts)
}

func (q *SQSQueue) Send(ctx context.Context, body []byte) (string, error) {
	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.opts.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	if max > 10 {
		max = 10
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.opts.QueueURL),
		MaxNumberOfMessages: int32(max),
		VisibilityTimeout:   seconds(q.opts.VisibilityTimeout),
		WaitTimeSeconds:     seconds(min(q.opts.WaitTime, MaxWaitTime)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, fromSQS(m))
	}
	return msgs, nil
}

func (q *SQSQueue) Delete(ctx context.Context, msg Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.opts.QueueURL),
		ReceiptHandle: aws.String(msg.Receipt),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", msg.ID, err)
	}
	return nil
}

func (q *SQSQueue) Release(ctx context.Context, msg Message, delay time.Duration) error {
	return q.changeVisibility(ctx, msg, delay)
}

func (q *SQSQueue) Extend(ctx context.Context, msg Message, d time.Duration) error {
	return q.changeVisibility(ctx, msg, d)
}

func (q *SQSQueue) changeVisibility(ctx context.Context, msg Message, d time.Duration) error {
	_, err := q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.opts.QueueURL),
		ReceiptHandle:     aws.String(msg.Receipt),
		VisibilityTimeout: seconds(d),
	})
	if err != nil {
		return fmt.Errorf("failed to change visibility of message %s: %w", msg.ID, err)
	}
	return nil
}

// DeadLetter copies the body to the dead-letter queue, when configured, and
// deletes the original
func (q *SQSQueue) DeadLetter(ctx context.Context, msg Message, reason string) error {
	if q.opts.DeadLetterQueueURL != "" {
		_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(q.opts.DeadLetterQueueURL),
			MessageBody: aws.String(string(msg.Body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"reason": {
					DataType:    aws.String("String"),
					StringValue: aws.String(truncate(reason, 1024)),
				},
				"original_message_id": {
					DataType:    aws.String("String"),
					StringValue: aws.String(msg.ID),
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to dead-letter message %s: %w", msg.ID, err)
		}
	}
	return q.Delete(ctx, msg)
}

func fromSQS(m types.Message) Message {
	return Message{
		ID:      aws.ToString(m.MessageId),
		Body:    []byte(aws.ToString(m.Body)),
		Receipt: aws.ToString(m.ReceiptHandle),
	}
}

func seconds(d time.Duration) int32 {
	if d <= 0 {
		return 0
	}
	if d > maxVisibility {
		d = maxVisibility
	}
	return int32(math.Ceil(d.Seconds()))
}

// truncate cuts s to at most n bytes of valid UTF-8
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
