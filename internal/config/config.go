package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AMQP     AMQPConfig     `mapstructure:"amqp"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds both the HTTP drain and the wait for in-flight jobs.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// ShutdownTimeout returns the configured shutdown budget as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string  `mapstructure:"model_name"     validate:"required"`
	Temperature  float32 `mapstructure:"temperature"    validate:"gte=0,lte=2"`
}

// QueueConfig selects the job store backend and worker polling cadence.
type QueueConfig struct {
	// Backend is either "redis" (shared, durable) or "memory" (single process, for local runs).
	Backend        string `mapstructure:"backend"          validate:"required,oneof=memory redis"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms" validate:"gte=10,lte=10000"`
}

// PollInterval returns the worker polling cadence as a duration.
func (c QueueConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RedisConfig configures the Redis job store. Required when Queue.Backend is "redis".
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
	// VisibilityTimeoutSeconds is how long a lease lasts before an unrenewed job is handed out again.
	VisibilityTimeoutSeconds int `mapstructure:"visibility_timeout_seconds" validate:"gte=0"`
}

// VisibilityTimeout returns the lease duration of the Redis job store.
func (c RedisConfig) VisibilityTimeout() time.Duration {
	return time.Duration(c.VisibilityTimeoutSeconds) * time.Second
}

// AMQPConfig configures the RabbitMQ exchange used for outbound mail and reminders.
type AMQPConfig struct {
	URL      string `mapstructure:"url"      validate:"required,url"`
	Exchange string `mapstructure:"exchange" validate:"required"`
}
