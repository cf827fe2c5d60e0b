package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/demandcast/demandcast/internal/utils"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")               // Current directory
		v.AddConfigPath("./configs")       // Project configs directory
		v.AddConfigPath("/etc/demandcast") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides, e.g. DEMANDCAST_SERVER_HTTP_PORT
	v.SetEnvPrefix("DEMANDCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	// Forecast defaults
	v.SetDefault("forecast.default_method", d.Forecast.DefaultMethod)
	v.SetDefault("forecast.default_grain", d.Forecast.DefaultGrain)
	v.SetDefault("forecast.default_confidence", d.Forecast.DefaultConfidence)
	v.SetDefault("forecast.default_alpha", d.Forecast.DefaultAlpha)
	v.SetDefault("forecast.default_seasonality", d.Forecast.DefaultSeasonality)
	v.SetDefault("forecast.timezone", d.Forecast.Timezone)
	v.SetDefault("forecast.max_workers", d.Forecast.MaxWorkers)

	// Queue defaults
	v.SetDefault("queue.enabled", d.Queue.Enabled)
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.request_subject", d.Queue.RequestSubject)
	v.SetDefault("queue.result_subject", d.Queue.ResultSubject)
	v.SetDefault("queue.compression", d.Queue.Compression)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			HTTPPort:  5555,
			BodyLimit: utils.DefaultMaxUploadSize,
		},
		Forecast: ForecastConfig{
			DefaultMethod:      "moving_average",
			DefaultGrain:       "Daily",
			DefaultConfidence:  95,
			DefaultAlpha:       0.3,
			DefaultSeasonality: 12,
			Timezone:           "UTC",
			MaxWorkers:         utils.DefaultWorkerCount,
		},
		Queue: QueueConfig{
			Enabled:        false,
			Type:           string(utils.QueueTypeNATS),
			URL:            "nats://localhost:4222",
			RequestSubject: utils.SubjectForecastRequests,
			ResultSubject:  utils.SubjectForecastResults,
			Compression:    "snappy",
			RedisStream:    "demandcast",
			RedisGroup:     "demandcast-group",
			KafkaGroupID:   "demandcast-forecaster",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
