package config

import (
	"fmt"

	"github.com/demandcast/demandcast/internal/analytics"
	"github.com/demandcast/demandcast/internal/analytics/forecast"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`       // Bind address for server (e.g., 0.0.0.0 for all interfaces)
	HTTPPort  int    `mapstructure:"http_port"`  // HTTP server port
	BodyLimit int    `mapstructure:"body_limit"` // Max request body in bytes
}

// ForecastConfig holds the defaults applied to requests that omit a setting
type ForecastConfig struct {
	DefaultMethod      string  `mapstructure:"default_method"`
	DefaultGrain       string  `mapstructure:"default_grain"`
	DefaultConfidence  int     `mapstructure:"default_confidence"`
	DefaultAlpha       float64 `mapstructure:"default_alpha"`
	DefaultSeasonality int     `mapstructure:"default_seasonality"`
	Timezone           string  `mapstructure:"timezone"`    // Period boundary timezone (e.g., "Asia/Tokyo", "+09:00", "UTC")
	MaxWorkers         int     `mapstructure:"max_workers"` // Concurrent group forecasts in batch mode
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // Run the forecast job worker
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	RequestSubject string `mapstructure:"request_subject"` // Subject jobs are consumed from
	ResultSubject  string `mapstructure:"result_subject"`  // Subject results are published to
	Compression    string `mapstructure:"compression"`     // Job payload compression: snappy (default), none

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "demandcast")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "demandcast-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates forecast defaults
func (c *ForecastConfig) Validate() error {
	if _, err := forecast.ParseMethod(c.DefaultMethod); err != nil {
		return fmt.Errorf("forecast.default_method: %w", err)
	}

	if _, err := analytics.ParseGrain(c.DefaultGrain); err != nil {
		return fmt.Errorf("forecast.default_grain: %w", err)
	}

	if !forecast.ValidConfidenceLevel(c.DefaultConfidence) {
		return fmt.Errorf("forecast.default_confidence must be one of %v", forecast.SupportedConfidenceLevels)
	}

	if c.DefaultAlpha <= 0 || c.DefaultAlpha >= 1 {
		return fmt.Errorf("forecast.default_alpha must be between 0 and 1")
	}

	if c.DefaultSeasonality < 2 || c.DefaultSeasonality > 52 {
		return fmt.Errorf("forecast.default_seasonality must be between 2 and 52")
	}

	if c.MaxWorkers < 1 {
		return fmt.Errorf("forecast.max_workers must be at least 1")
	}

	if c.Timezone != "" {
		if _, err := parseTimezone(c.Timezone); err != nil {
			return fmt.Errorf("forecast.timezone: %w", err)
		}
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Type {
	case "", "nats", "redis", "kafka", "memory":
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory")
	}

	if c.RequestSubject == "" || c.ResultSubject == "" {
		return fmt.Errorf("queue.request_subject and queue.result_subject are required")
	}

	switch c.Compression {
	case "", "snappy", "none":
	default:
		return fmt.Errorf("queue.compression must be 'snappy' or 'none'")
	}

	if c.RequestSubject == c.ResultSubject {
		return fmt.Errorf("queue.request_subject and queue.result_subject cannot be the same")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
