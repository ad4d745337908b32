package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
	// MaxSQSWaitTime is the longest receive long-poll SQS accepts
	MaxSQSWaitTime = 20 * time.Second
)

// Server modes
const (
	ModeAsync  = "async"
	ModeSync   = "sync"
	ModeHybrid = "hybrid"
)

// Storage and queue providers
const (
	StorageS3       = "s3"
	StorageLocal    = "local"
	QueueSQS        = "sqs"
	QueueRabbitMQ   = "rabbitmq"
	defaultFFmpeg   = "ffmpeg"
	defaultMaxBytes = 512 << 20
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadSize   int64         `yaml:"max_upload_size"`
	UploadDir       string        `yaml:"upload_dir"`
	OutputDir       string        `yaml:"output_dir"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// StorageConfig selects and configures the Blob Store backend
type StorageConfig struct {
	Provider string             `yaml:"provider"`
	S3       S3Config           `yaml:"s3"`
	Local    LocalStorageConfig `yaml:"local"`
}

// S3Config holds object store settings. Empty credentials fall back to the
// default AWS credential chain.
type S3Config struct {
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	SessionToken    string        `yaml:"session_token"`
	UsePathStyle    bool          `yaml:"use_path_style"`
	PresignTTL      time.Duration `yaml:"presign_ttl"`
}

// LocalStorageConfig holds filesystem Blob Store settings
type LocalStorageConfig struct {
	Root string `yaml:"root"`
}

// QueueConfig selects and configures the Job Queue backend
type QueueConfig struct {
	Provider string    `yaml:"provider"`
	SQS      SQSConfig `yaml:"sqs"`
}

// SQSConfig holds SQS settings
type SQSConfig struct {
	QueueURL           string        `yaml:"queue_url"`
	DeadLetterQueueURL string        `yaml:"dead_letter_queue_url"`
	VisibilityTimeout  time.Duration `yaml:"visibility_timeout"`
	WaitTime           time.Duration `yaml:"wait_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      RabbitQueue      `yaml:"queue"`
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
	RetryQueue string           `yaml:"retry_queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// RabbitQueue holds RabbitMQ queue configuration
type RabbitQueue struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// DeadLetterConfig names the exchange and queue rejected messages are routed to
type DeadLetterConfig struct {
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// FFmpegConfig holds media combiner settings
type FFmpegConfig struct {
	Binary      string `yaml:"binary"`
	StderrLimit int    `yaml:"stderr_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	JobTimeout        time.Duration `yaml:"job_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	TempDir           string        `yaml:"temp_dir"`
	MetricsPort       int           `yaml:"metrics_port"`
	Retry             RetryConfig   `yaml:"retry"`
}

// RetryConfig holds the explicit job retry policy
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`
}

// Load reads and parses the configuration file. ${VAR} references are
// expanded from the environment before parsing.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.applyEnvOverrides(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

// applyEnvOverrides lets the conventional deployment variables win over the file
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Storage.S3.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.S3.Region = v
	}
	if v := os.Getenv("SQS_QUEUE_URL"); v != "" {
		c.Queue.SQS.QueueURL = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Mode == "" {
		c.Server.Mode = ModeAsync
	}
	if c.Server.MaxUploadSize <= 0 {
		c.Server.MaxUploadSize = defaultMaxBytes
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = "uploads"
	}
	if c.Server.OutputDir == "" {
		c.Server.OutputDir = "outputs"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = StorageS3
	}
	if c.Queue.Provider == "" {
		c.Queue.Provider = QueueSQS
	}
	if c.Queue.SQS.VisibilityTimeout <= 0 {
		c.Queue.SQS.VisibilityTimeout = 60 * time.Second
	}
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpeg
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 100 * time.Millisecond
	}
	if c.Worker.HeartbeatInterval <= 0 {
		c.Worker.HeartbeatInterval = c.Queue.SQS.VisibilityTimeout / 2
	}
}

// ValidateAPIConfig checks if the configuration is valid for the API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	switch c.Server.Mode {
	case ModeAsync, ModeSync, ModeHybrid:
	default:
		return fmt.Errorf("invalid server mode: %q (must be async, sync or hybrid)", c.Server.Mode)
	}

	// The synchronous variant touches neither the database nor the queue.
	if c.Server.Mode == ModeSync {
		return nil
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.Server.Mode == ModeHybrid {
		return nil
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	return c.validateQueue()
}

// ValidateWorkerConfig checks if the configuration is valid for the worker service
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.Retry.MaxAttempts < 0 {
		return fmt.Errorf("worker retry max_attempts must not be negative")
	}

	if c.Worker.MetricsPort != 0 && (c.Worker.MetricsPort < MinPort || c.Worker.MetricsPort > MaxPort) {
		return fmt.Errorf("invalid worker metrics port: %d (must be between %d and %d)", c.Worker.MetricsPort, MinPort, MaxPort)
	}

	// A heartbeat must land before the message becomes visible again
	if c.Queue.Provider == QueueSQS && c.Worker.HeartbeatInterval > 0 &&
		c.Worker.HeartbeatInterval >= c.Queue.SQS.VisibilityTimeout {
		return fmt.Errorf("worker heartbeat_interval (%s) must be shorter than sqs visibility_timeout (%s)",
			c.Worker.HeartbeatInterval, c.Queue.SQS.VisibilityTimeout)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	return c.validateQueue()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Provider {
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	case StorageLocal:
		if c.Storage.Local.Root == "" {
			return fmt.Errorf("local storage root is required")
		}
	default:
		return fmt.Errorf("unknown storage provider: %q", c.Storage.Provider)
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Provider {
	case QueueSQS:
		if c.Queue.SQS.QueueURL == "" {
			return fmt.Errorf("sqs queue url is required")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("aws region is required for sqs")
		}
		if c.Queue.SQS.WaitTime < 0 || c.Queue.SQS.WaitTime > MaxSQSWaitTime {
			return fmt.Errorf("invalid sqs wait_time: %s (must be between 0 and %s)", c.Queue.SQS.WaitTime, MaxSQSWaitTime)
		}
	case QueueRabbitMQ:
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}

		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}

		if c.RabbitMQ.Exchange.Name == "" {
			return fmt.Errorf("rabbitmq exchange name is required")
		}

		if c.RabbitMQ.Queue.Name == "" {
			return fmt.Errorf("rabbitmq queue name is required")
		}
	default:
		return fmt.Errorf("unknown queue provider: %q", c.Queue.Provider)
	}
	return nil
}
