// Package config provides configuration management for chatpane.
// It defines the structure of the YAML configuration file and handles
// loading, validation, and default value application.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration structure for chatpane.
type Config struct {
	// Version is the configuration file format version
	Version string `yaml:"version"`
	// Server defines the web front
	Server ServerConfig `yaml:"server"`
	// Backend defines how the chat backend is reached
	Backend BackendConfig `yaml:"backend"`
	// UI defines rendering options shared by all fronts
	UI UIConfig `yaml:"ui"`
	// Metrics defines the Prometheus listener
	Metrics MetricsConfig `yaml:"metrics"`
	// Logging defines log output
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig defines the web front.
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// SessionTTL evicts page sessions that never opened their event stream (default: 5m)
	SessionTTL time.Duration `yaml:"session_ttl"`
	// EventBuffer is the per-session event queue length (default: 64)
	EventBuffer int `yaml:"event_buffer"`
	// Title is the page title
	Title string `yaml:"title"`
	// Welcome is the text shown until the first message is sent
	Welcome string `yaml:"welcome"`
}

// BackendConfig defines the chat backend connection.
type BackendConfig struct {
	// URL is the backend root serving chain_start and get_notifications
	URL string `yaml:"url"`
	// APIKey is sent as a bearer token when set
	APIKey string `yaml:"api_key"`
	// TimeoutMs bounds each request in milliseconds (default: 0, no timeout)
	TimeoutMs int `yaml:"timeout_ms"`
	// RetryAttempts is the number of retries on 5xx and network errors (default: 2)
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryBackoffMs is the first retry delay in milliseconds, doubled per retry (default: 1000)
	RetryBackoffMs int `yaml:"retry_backoff_ms"`
	// RateLimit caps requests per second (default: 0, unlimited)
	RateLimit float64 `yaml:"rate_limit"`
	// RateLimitBurst is the limiter burst size (default: 1)
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// UIConfig defines rendering options.
type UIConfig struct {
	// Sanitize filters backend markup through an HTML policy instead of trusting it
	Sanitize bool `yaml:"sanitize"`
}

// MetricsConfig defines the metrics listener.
type MetricsConfig struct {
	// Enabled starts the Prometheus listener (disabled by default)
	Enabled bool `yaml:"enabled"`
	// Addr is the metrics listen address (default: ":9090")
	Addr string `yaml:"addr"`
}

// LoggingConfig defines log output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error" (default: "info")
	Level string `yaml:"level"`
	// Format is "text" or "json" (default: "text")
	Format string `yaml:"format"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig loads and validates a configuration from a YAML file.
// It applies default values for any missing optional fields.
// Returns an error if the file cannot be read, parsed, or is invalid.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig writes the configuration to a YAML file.
// The file is created with 0600 permissions since it may hold the API key.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors. Every returned error wraps
// ErrInvalid.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("%w: backend.url is required", ErrInvalid)
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend.url must be an http(s) URL, got %q", ErrInvalid, c.Backend.URL)
	}

	if c.Backend.TimeoutMs < 0 {
		return fmt.Errorf("%w: backend.timeout_ms cannot be negative", ErrInvalid)
	}
	if c.Backend.RetryAttempts < 0 {
		return fmt.Errorf("%w: backend.retry_attempts cannot be negative", ErrInvalid)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("%w: backend.rate_limit cannot be negative", ErrInvalid)
	}

	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("%w: server.session_ttl cannot be negative", ErrInvalid)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalid, c.Logging.Format)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 5 * time.Minute
	}
	if c.Server.EventBuffer <= 0 {
		c.Server.EventBuffer = 64
	}
	if c.Server.Title == "" {
		c.Server.Title = "Chat"
	}
	if c.Server.Welcome == "" {
		c.Server.Welcome = "How can I help you today?"
	}

	if c.Backend.URL == "" {
		c.Backend.URL = "http://localhost:8000"
	}
	if c.Backend.RetryAttempts == 0 {
		c.Backend.RetryAttempts = 2
	}
	if c.Backend.RetryBackoffMs == 0 {
		c.Backend.RetryBackoffMs = 1000
	}
	if c.Backend.RateLimitBurst == 0 {
		c.Backend.RateLimitBurst = 1
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Timeout returns the per-request backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// RetryBackoff returns the first retry delay.
func (b BackendConfig) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffMs) * time.Millisecond
}
