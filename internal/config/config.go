// Package config provides configuration structures and validation for the
// application. It handles environment-based configuration for all major
// components: HTTP server, database, Redis, Kafka, the outbox relay, and
// the transfer engine's business parameters.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration. Each field covers
// one subsystem and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	Transfer    TransferConfig
	Interest    InterestConfig
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
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// RedisConfig covers the external lock service and the daily limit
// counter store, which share one Redis deployment.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	LockWait    time.Duration // max wait for a single lock acquisition
	LockLease   time.Duration // auto-expiry backstop for held locks
	DialTimeout time.Duration
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers             string
	TransferEventsTopic string
	FraudAlertsTopic    string
	NumPartitions       int
	ReplicationFactor   int
	ConsumerGroup       string
	MinBytes            int
	MaxBytes            int
	MaxWait             time.Duration
}

// OutboxConfig contains outbox relay configuration
type OutboxConfig struct {
	PollInterval   time.Duration
	InitialDelay   time.Duration
	BatchSize      int
	PublishTimeout time.Duration
}

// TransferConfig contains the business parameters of the transfer engine.
// FeePercent of zero disables fee collection entirely.
type TransferConfig struct {
	FeePercent      decimal.Decimal
	SystemAccountID int64 // fee-collection account, third lock participant
	DailyLimit      decimal.Decimal
	EnforceFrozen   bool
}

// InterestConfig contains the daily interest accrual parameters
type InterestConfig struct {
	Enabled        bool
	AnnualRate     decimal.Decimal
	SweepInterval  time.Duration
	WorkerPoolSize int
}

// validate performs comprehensive validation of all configuration values
func (c *Config) validate() error {
	var validationErrors []string

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

	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.LockWait <= 0 {
		validationErrors = append(validationErrors, "REDIS_LOCK_WAIT must be greater than 0")
	}
	if c.Redis.LockLease <= 0 {
		validationErrors = append(validationErrors, "REDIS_LOCK_LEASE must be greater than 0")
	}

	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.TransferEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_TRANSFER_EVENTS_TOPIC is required")
	}
	if c.Kafka.FraudAlertsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_FRAUD_ALERTS_TOPIC is required")
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

	if c.Outbox.PollInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLL_INTERVAL must be greater than 0")
	}
	if c.Outbox.InitialDelay < 0 {
		validationErrors = append(validationErrors, "OUTBOX_INITIAL_DELAY must not be negative")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.PublishTimeout <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_PUBLISH_TIMEOUT must be greater than 0")
	}

	if c.Transfer.FeePercent.IsNegative() {
		validationErrors = append(validationErrors, "TRANSFER_FEE_PERCENT must not be negative")
	}
	if c.Transfer.FeePercent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		validationErrors = append(validationErrors, "TRANSFER_FEE_PERCENT must be less than 1")
	}
	if c.Transfer.SystemAccountID <= 0 {
		validationErrors = append(validationErrors, "TRANSFER_SYSTEM_ACCOUNT_ID must be greater than 0")
	}
	if c.Transfer.DailyLimit.Sign() <= 0 {
		validationErrors = append(validationErrors, "TRANSFER_DAILY_LIMIT must be greater than 0")
	}

	if c.Interest.Enabled {
		if c.Interest.AnnualRate.Sign() <= 0 {
			validationErrors = append(validationErrors, "INTEREST_ANNUAL_RATE must be greater than 0 when accrual is enabled")
		}
		if c.Interest.SweepInterval <= 0 {
			validationErrors = append(validationErrors, "INTEREST_SWEEP_INTERVAL must be greater than 0 when accrual is enabled")
		}
		if c.Interest.WorkerPoolSize <= 0 {
			validationErrors = append(validationErrors, "INTEREST_WORKER_POOL_SIZE must be greater than 0 when accrual is enabled")
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
