// Package bootstrap turns configuration into the concrete logger, database,
// blob store and queue used by the service binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/config"
	"github.com/cuongbtq/clipstack/internal/queue"
	"github.com/cuongbtq/clipstack/internal/retry"
	"github.com/cuongbtq/clipstack/shared/awsconfig"
	"github.com/cuongbtq/clipstack/shared/logger"
	"github.com/cuongbtq/clipstack/shared/postgresql"
	"github.com/cuongbtq/clipstack/shared/rabbitmq"
)

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// OpenDatabase initializes the PostgreSQL database client
func OpenDatabase(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// AWSConfig builds the SDK config shared by the S3 store and the SQS queue
func AWSConfig(ctx context.Context, cfg *config.S3Config) (aws.Config, error) {
	return awsconfig.Load(ctx, awsconfig.Options{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
	})
}

// OpenBlobStore returns the configured Blob Store backend
func OpenBlobStore(ctx context.Context, cfg *config.StorageConfig) (blob.Store, error) {
	switch cfg.Provider {
	case config.StorageLocal:
		store, err := blob.NewLocalStore(cfg.Local.Root)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageS3:
		awsCfg, err := AWSConfig(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}
		return blob.NewS3Store(awsCfg, blob.S3Options{
			Bucket:       cfg.S3.Bucket,
			UsePathStyle: cfg.S3.UsePathStyle,
			PresignTTL:   cfg.S3.PresignTTL,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Provider)
	}
}

// OpenQueue returns the configured Job Queue backend and a func releasing its
// connection
func OpenQueue(ctx context.Context, cfg *config.Config, logger *slog.Logger) (queue.Queue, func() error, error) {
	switch cfg.Queue.Provider {
	case config.QueueSQS:
		awsCfg, err := AWSConfig(ctx, &cfg.Storage.S3)
		if err != nil {
			return nil, nil, err
		}
		q := queue.NewSQSQueueFromConfig(awsCfg, queue.SQSOptions{
			QueueURL:           cfg.Queue.SQS.QueueURL,
			DeadLetterQueueURL: cfg.Queue.SQS.DeadLetterQueueURL,
			VisibilityTimeout:  cfg.Queue.SQS.VisibilityTimeout,
			WaitTime:           cfg.Queue.SQS.WaitTime,
		})
		return q, func() error { return nil }, nil
	case config.QueueRabbitMQ:
		client, err := OpenRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			return nil, nil, err
		}
		return queue.NewRabbitQueue(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue provider: %q", cfg.Queue.Provider)
	}
}

// OpenRabbitMQ initializes the RabbitMQ client and declares its topology
func OpenRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(RabbitConfig(cfg), logger)
}

// RabbitConfig maps the YAML section onto the client configuration
func RabbitConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		DeadLetterExchange: cfg.DeadLetter.Exchange,
		DeadLetterQueue:    cfg.DeadLetter.Queue,
		RetryQueue:         cfg.RetryQueue,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}
}

// RetryPolicy converts the worker retry section
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.Multiplier,
	}
}
