package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Env string `env:"OVD_ENV" default:"development"`

	// Tracking link
	TCPHost string `env:"TCP_HOST" default:"0.0.0.0"`
	TCPPort int    `env:"TCP_PORT" default:"21213"`

	// Status API
	StatusEnabled bool   `env:"STATUS_ENABLED" default:"true"`
	StatusHost    string `env:"STATUS_HOST" default:"127.0.0.1"`
	StatusPort    int    `env:"STATUS_PORT" default:"21214"`

	// Monitoring
	PrometheusEnabled bool `env:"PROMETHEUS_ENABLED" default:"true"`

	// Logging
	LogLevel   string   `env:"LOG_LEVEL" default:"info"`
	LogFormat  string   `env:"LOG_FORMAT"` // text in development, json otherwise
	LogOutputs []string `env:"LOG_OUTPUTS" default:"stdout"`

	// Connection timeouts, 0 = none
	ReadIdleTimeout time.Duration `env:"READ_IDLE_TIMEOUT" default:"0"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" default:"0"`

	// Distribution
	PartialBodyUpdates bool `env:"PARTIAL_BODY_UPDATES" default:"true"`
	QueueHighWatermark int  `env:"QUEUE_HIGH_WATERMARK" default:"1024"`

	// Device report rates
	ControllerReportHz int `env:"CONTROLLER_REPORT_HZ" default:"90"`
	TrackerReportHz    int `env:"TRACKER_REPORT_HZ" default:"200"`

	// Redis mirror
	RedisMirrorEnabled bool   `env:"REDIS_MIRROR_ENABLED" default:"false"`
	RedisURL           string `env:"REDIS_URL" default:"redis://localhost:6379"`
	RedisPassword      string `env:"REDIS_PASSWORD"`
	MirrorRateHz       int    `env:"MIRROR_RATE_HZ" default:"30"`
}

// LoadConfig loads configuration from environment variables, after merging
// an optional .env file from the working directory.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom is LoadConfig with an explicit env file. A missing file is
// not an error; variables already set in the environment win over the file.
func LoadConfigFrom(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	config := &Config{}
	loaders := []func() error{
		func() error { return loadEnvString(&config.Env, "OVD_ENV", "development") },

		func() error { return loadEnvString(&config.TCPHost, "TCP_HOST", "0.0.0.0") },
		func() error { return loadEnvInt(&config.TCPPort, "TCP_PORT", 21213) },

		func() error { return loadEnvBool(&config.StatusEnabled, "STATUS_ENABLED", true) },
		func() error { return loadEnvString(&config.StatusHost, "STATUS_HOST", "127.0.0.1") },
		func() error { return loadEnvInt(&config.StatusPort, "STATUS_PORT", 21214) },

		func() error { return loadEnvBool(&config.PrometheusEnabled, "PROMETHEUS_ENABLED", true) },

		func() error { return loadEnvString(&config.LogLevel, "LOG_LEVEL", "info") },
		func() error { return loadEnvString(&config.LogFormat, "LOG_FORMAT", defaultLogFormat(config)) },
		func() error { return loadEnvStringSlice(&config.LogOutputs, "LOG_OUTPUTS", []string{"stdout"}) },

		func() error { return loadEnvDuration(&config.ReadIdleTimeout, "READ_IDLE_TIMEOUT", 0) },
		func() error { return loadEnvDuration(&config.WriteTimeout, "WRITE_TIMEOUT", 0) },

		func() error { return loadEnvBool(&config.PartialBodyUpdates, "PARTIAL_BODY_UPDATES", true) },
		func() error { return loadEnvInt(&config.QueueHighWatermark, "QUEUE_HIGH_WATERMARK", 1024) },

		func() error { return loadEnvInt(&config.ControllerReportHz, "CONTROLLER_REPORT_HZ", 90) },
		func() error { return loadEnvInt(&config.TrackerReportHz, "TRACKER_REPORT_HZ", 200) },

		func() error { return loadEnvBool(&config.RedisMirrorEnabled, "REDIS_MIRROR_ENABLED", false) },
		func() error { return loadEnvString(&config.RedisURL, "REDIS_URL", "redis://localhost:6379") },
		func() error { return loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", "") },
		func() error { return loadEnvInt(&config.MirrorRateHz, "MIRROR_RATE_HZ", 30) },
	}
	for _, load := range loaders {
		if err := load(); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvStringSlice(target *[]string, key string, defaultValue []string) error {
	if value := os.Getenv(key); value != "" {
		*target = strings.Split(value, ",")
		// Trim whitespace from each element
		for i, v := range *target {
			(*target)[i] = strings.TrimSpace(v)
		}
	} else {
		*target = defaultValue
	}
	return nil
}

// durations accept Go syntax ("250ms") or a bare number of seconds
func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		*target = defaultValue
		return nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		*target = time.Duration(secs) * time.Second
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration value for %s: %v", key, err)
	}
	*target = parsed
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	// Validate ports are in valid range
	if c.TCPPort < 1 || c.TCPPort > 65535 {
		errors = append(errors, "TCP_PORT must be between 1 and 65535")
	}
	if c.StatusEnabled {
		if c.StatusPort < 1 || c.StatusPort > 65535 {
			errors = append(errors, "STATUS_PORT must be between 1 and 65535")
		}
		if c.StatusPort == c.TCPPort {
			errors = append(errors, "STATUS_PORT must differ from TCP_PORT")
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if c.ReadIdleTimeout < 0 {
		errors = append(errors, "READ_IDLE_TIMEOUT must not be negative")
	}
	if c.WriteTimeout < 0 {
		errors = append(errors, "WRITE_TIMEOUT must not be negative")
	}
	if c.QueueHighWatermark < 0 {
		errors = append(errors, "QUEUE_HIGH_WATERMARK must not be negative")
	}
	if c.ControllerReportHz < 1 || c.ControllerReportHz > 1000 {
		errors = append(errors, "CONTROLLER_REPORT_HZ must be between 1 and 1000")
	}
	if c.TrackerReportHz < 1 || c.TrackerReportHz > 1000 {
		errors = append(errors, "TRACKER_REPORT_HZ must be between 1 and 1000")
	}

	if c.RedisMirrorEnabled {
		if c.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when REDIS_MIRROR_ENABLED is set")
		}
		if c.MirrorRateHz < 1 {
			errors = append(errors, "MIRROR_RATE_HZ must be at least 1")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// TCPAddr is the tracking link listen address.
func (c *Config) TCPAddr() string {
	return net.JoinHostPort(c.TCPHost, strconv.Itoa(c.TCPPort))
}

// StatusAddr is the status API listen address.
func (c *Config) StatusAddr() string {
	return net.JoinHostPort(c.StatusHost, strconv.Itoa(c.StatusPort))
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// text logs for a developer terminal, json for everything else
func defaultLogFormat(c *Config) string {
	if c.IsDevelopment() {
		return "text"
	}
	return "json"
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
