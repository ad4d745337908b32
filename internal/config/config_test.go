package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "S3_BUCKET", "AWS_REGION", "SQS_QUEUE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearOverrides(t)
	t.Setenv("CLIPSTACK_TEST_DB_PASSWORD", "s3cret")

	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, ModeAsync, cfg.Server.Mode)
			assert.Equal(t, "s3cret", cfg.Database.Password)
			assert.Equal(t, "clipstack", cfg.Database.Database)
			assert.Equal(t, StorageS3, cfg.Storage.Provider)
			assert.Equal(t, "clipstack-media", cfg.Storage.S3.Bucket)
			assert.Equal(t, time.Hour, cfg.Storage.S3.PresignTTL)
			assert.Equal(t, QueueSQS, cfg.Queue.Provider)
			assert.Equal(t, 60*time.Second, cfg.Queue.SQS.VisibilityTimeout)
			assert.Equal(t, "/usr/bin/ffmpeg", cfg.FFmpeg.Binary)
			assert.Equal(t, 5, cfg.Worker.Retry.MaxAttempts)
			assert.Equal(t, "clipstack-api", cfg.App.Name)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearOverrides(t)

	cfg, err := Load("testdata/rabbitmq_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, ModeAsync, cfg.Server.Mode)
	assert.Equal(t, int64(defaultMaxBytes), cfg.Server.MaxUploadSize)
	assert.Equal(t, "uploads", cfg.Server.UploadDir)
	assert.Equal(t, "outputs", cfg.Server.OutputDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpeg.Binary)
	assert.Equal(t, 100*time.Millisecond, cfg.Worker.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Worker.HeartbeatInterval)
	assert.Equal(t, QueueRabbitMQ, cfg.Queue.Provider)
	assert.Equal(t, "clipstack_dlx", cfg.RabbitMQ.DeadLetter.Exchange)
	assert.Equal(t, "clipstack_jobs_retry", cfg.RabbitMQ.RetryQueue)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv("PORT", "3000")
	t.Setenv("S3_BUCKET", "other-bucket")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("SQS_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/1/q")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "other-bucket", cfg.Storage.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/1/q", cfg.Queue.SQS.QueueURL)
}

func TestLoad_InvalidPortOverride(t *testing.T) {
	clearOverrides(t)
	t.Setenv("PORT", "eighty")

	cfg, err := Load("testdata/valid_config.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func validAsyncConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, Mode: ModeAsync},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "clipstack",
		},
		Storage: StorageConfig{
			Provider: StorageS3,
			S3:       S3Config{Bucket: "clipstack-media", Region: "ap-southeast-2"},
		},
		Queue: QueueConfig{
			Provider: QueueSQS,
			SQS:      SQSConfig{QueueURL: "https://sqs.ap-southeast-2.amazonaws.com/1/jobs"},
		},
		Worker: WorkerConfig{
			Concurrency:     2,
			JobTimeout:      time.Minute,
			ShutdownTimeout: time.Second,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "unknown mode",
			mutate:    func(c *Config) { c.Server.Mode = "batch" },
			errString: "invalid server mode",
		},
		{
			name: "sync mode needs no backing services",
			mutate: func(c *Config) {
				c.Server.Mode = ModeSync
				c.Database = DatabaseConfig{}
				c.Storage = StorageConfig{}
				c.Queue = QueueConfig{}
			},
		},
		{
			name: "hybrid mode needs storage only",
			mutate: func(c *Config) {
				c.Server.Mode = ModeHybrid
				c.Database = DatabaseConfig{}
				c.Queue = QueueConfig{}
			},
		},
		{
			name:      "hybrid mode without bucket",
			mutate: func(c *Config) {
				c.Server.Mode = ModeHybrid
				c.Storage.S3.Bucket = ""
			},
			errString: "s3 bucket is required",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			errString: "database name is required",
		},
		{
			name:      "empty queue url",
			mutate:    func(c *Config) { c.Queue.SQS.QueueURL = "" },
			errString: "sqs queue url is required",
		},
		{
			name:      "sqs wait time above long-poll limit",
			mutate:    func(c *Config) { c.Queue.SQS.WaitTime = 30 * time.Second },
			errString: "invalid sqs wait_time",
		},
		{
			name:   "sqs wait time at limit",
			mutate: func(c *Config) { c.Queue.SQS.WaitTime = 20 * time.Second },
		},
		{
			name:      "unknown storage provider",
			mutate:    func(c *Config) { c.Storage.Provider = "gcs" },
			errString: "unknown storage provider",
		},
		{
			name: "local storage without root",
			mutate: func(c *Config) {
				c.Storage.Provider = StorageLocal
			},
			errString: "local storage root is required",
		},
		{
			name: "rabbitmq without exchange",
			mutate: func(c *Config) {
				c.Queue.Provider = QueueRabbitMQ
				c.RabbitMQ = RabbitMQConfig{Host: "localhost", Port: 5672, Queue: RabbitQueue{Name: "jobs"}}
			},
			errString: "rabbitmq exchange name is required",
		},
		{
			name: "rabbitmq without queue",
			mutate: func(c *Config) {
				c.Queue.Provider = QueueRabbitMQ
				c.RabbitMQ = RabbitMQConfig{Host: "localhost", Port: 5672, Exchange: ExchangeConfig{Name: "jobs"}}
			},
			errString: "rabbitmq queue name is required",
		},
		{
			name: "empty rabbitmq host",
			mutate: func(c *Config) {
				c.Queue.Provider = QueueRabbitMQ
				c.RabbitMQ = RabbitMQConfig{Port: 5672}
			},
			errString: "rabbitmq host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAsyncConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			errString: "concurrency must be greater than 0",
		},
		{
			name:      "zero job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			errString: "job_timeout must be greater than 0",
		},
		{
			name:      "zero shutdown timeout",
			mutate:    func(c *Config) { c.Worker.ShutdownTimeout = 0 },
			errString: "shutdown_timeout must be greater than 0",
		},
		{
			name:      "negative max attempts",
			mutate:    func(c *Config) { c.Worker.Retry.MaxAttempts = -1 },
			errString: "max_attempts must not be negative",
		},
		{
			name:      "metrics port out of range",
			mutate:    func(c *Config) { c.Worker.MetricsPort = 99999 },
			errString: "invalid worker metrics port",
		},
		{
			name:      "missing database",
			mutate:    func(c *Config) { c.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name: "heartbeat not shorter than visibility timeout",
			mutate: func(c *Config) {
				c.Queue.SQS.VisibilityTimeout = 30 * time.Second
				c.Worker.HeartbeatInterval = 30 * time.Second
			},
			errString: "heartbeat_interval",
		},
		{
			name: "heartbeat shorter than visibility timeout",
			mutate: func(c *Config) {
				c.Queue.SQS.VisibilityTimeout = 30 * time.Second
				c.Worker.HeartbeatInterval = 10 * time.Second
			},
		},
		{
			name: "heartbeat is not bound by sqs on rabbitmq",
			mutate: func(c *Config) {
				c.Queue.Provider = QueueRabbitMQ
				c.RabbitMQ = RabbitMQConfig{
					Host:     "localhost",
					Port:     5672,
					Exchange: ExchangeConfig{Name: "jobs"},
					Queue:    RabbitQueue{Name: "jobs"},
				}
				c.Worker.HeartbeatInterval = time.Minute
			},
		},
		{
			name:      "server port is not required",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAsyncConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	clearOverrides(t)

	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})

	t.Run("load rabbitmq worker config", func(t *testing.T) {
		cfg, err := Load("testdata/rabbitmq_config.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateWorkerConfig())
	})
}

func TestPortConstants(t *testing.T) {
	assert.Equal(t, 1, MinPort)
	assert.Equal(t, 65535, MaxPort)
}
