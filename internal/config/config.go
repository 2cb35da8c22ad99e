// Package config provides configuration structures and validation for the reservation engine.
// It handles environment-based configuration for the HTTP API, the background worker,
// storage backends, message queues and the booking and points policies.
package config

import (
	"errors"
	"strings"
	"time"
)

// Storage drivers supported by the reservation store.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Storage     StorageConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Scheduler   SchedulerConfig
	Booking     BookingConfig
	Points      PointsConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// StorageConfig selects the backend of the reservation store
type StorageConfig struct {
	Driver string // postgres or memory
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	EventsTopic       string // Booking lifecycle events published from the outbox
	PaymentTopic      string // Payment collaborator callbacks
	ActivityTopic     string // User activity that earns or spends points
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
	TxMaxRetries    int           // Attempts for a transaction aborted by serialization failure or deadlock
	TxRetryBackoff  time.Duration // Base delay between retried attempts
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the property cache configuration
type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	PropertyCacheTTL time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// SchedulerConfig controls the periodic completion of finished stays
type SchedulerConfig struct {
	CompletionInterval  time.Duration
	CompletionBatchSize int
}

// BookingConfig contains the reservation policy thresholds
type BookingConfig struct {
	MaxBookingDays          int
	MinBookingNoticeHours   int
	CancellationPolicyHours int
	RefundSchedule          string // Optional graded schedule, e.g. "168:1,72:0.5"
	ReviewDaysLimit         int
	TxTimeout               time.Duration
}

// PointsConfig contains the point amounts granted or charged per activity
type PointsConfig struct {
	RegistrationBonus int64
	BookingEarn       int64
	ReviewEarn        int64
	PostCost          int64
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Storage config
	if c.Storage.Driver != StorageDriverPostgres && c.Storage.Driver != StorageDriverMemory {
		validationErrors = append(validationErrors, "STORAGE_DRIVER must be one of postgres, memory")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.EventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENTS_TOPIC is required")
	}
	if c.Kafka.PaymentTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_TOPIC is required")
	}
	if c.Kafka.ActivityTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_ACTIVITY_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Storage.Driver == StorageDriverPostgres {
		if c.Postgres.URL == "" {
			validationErrors = append(validationErrors, "POSTGRES_URL is required")
		}
		if c.Postgres.MaxConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
		}
		if c.Postgres.MinConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
		}
		if c.Postgres.ConnMaxLifetime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
		}
		if c.Postgres.ConnMaxIdleTime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
		}
	}
	if c.Postgres.TxMaxRetries <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_TX_MAX_RETRIES must be greater than 0")
	}
	if c.Postgres.TxRetryBackoff < 0 {
		validationErrors = append(validationErrors, "POSTGRES_TX_RETRY_BACKOFF cannot be negative")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.PropertyCacheTTL <= 0 {
		validationErrors = append(validationErrors, "PROPERTY_CACHE_TTL must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool and Scheduler config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}
	if c.Scheduler.CompletionInterval <= 0 {
		validationErrors = append(validationErrors, "COMPLETION_INTERVAL must be greater than 0")
	}
	if c.Scheduler.CompletionBatchSize <= 0 {
		validationErrors = append(validationErrors, "COMPLETION_BATCH_SIZE must be greater than 0")
	}

	// Validate Booking policy
	if c.Booking.MaxBookingDays <= 0 {
		validationErrors = append(validationErrors, "MAX_BOOKING_DAYS must be greater than 0")
	}
	if c.Booking.MinBookingNoticeHours < 0 {
		validationErrors = append(validationErrors, "MIN_BOOKING_NOTICE_HOURS cannot be negative")
	}
	if c.Booking.CancellationPolicyHours < 0 {
		validationErrors = append(validationErrors, "CANCELLATION_POLICY_HOURS cannot be negative")
	}
	if c.Booking.ReviewDaysLimit < 0 {
		validationErrors = append(validationErrors, "REVIEW_DAYS_LIMIT cannot be negative")
	}
	if c.Booking.TxTimeout <= 0 {
		validationErrors = append(validationErrors, "TX_TIMEOUT must be greater than 0")
	}

	// Validate Points amounts
	if c.Points.RegistrationBonus < 0 {
		validationErrors = append(validationErrors, "POINTS_REGISTRATION_BONUS cannot be negative")
	}
	if c.Points.BookingEarn < 0 {
		validationErrors = append(validationErrors, "POINTS_BOOKING_EARN cannot be negative")
	}
	if c.Points.ReviewEarn < 0 {
		validationErrors = append(validationErrors, "POINTS_REVIEW_EARN cannot be negative")
	}
	if c.Points.PostCost <= 0 {
		validationErrors = append(validationErrors, "POINTS_POST_COST must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
