package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/c360/formatkit/errors"
)

// Converter groups that can be switched off through Formats.Disabled.
const (
	GroupEncoding = "encoding"
	GroupNumbers  = "numbers"
	GroupHashing  = "hashing"
	GroupData     = "data"
	GroupImages   = "images"
)

// FormatGroups lists every converter group in registration order.
var FormatGroups = []string{GroupEncoding, GroupNumbers, GroupHashing, GroupData, GroupImages}

// Config is the complete service configuration
type Config struct {
	Version string        `json:"version,omitempty"`
	Log     LogConfig     `json:"log"`
	HTTP    HTTPConfig    `json:"http"`
	Metrics MetricsConfig `json:"metrics"`
	NATS    NATSConfig    `json:"nats"`
	Formats FormatsConfig `json:"formats"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// HTTPConfig configures the HTTP gateway
type HTTPConfig struct {
	Enabled          bool          `json:"enabled"`
	Port             int           `json:"port"`
	MaxRequestSize   int64         `json:"max_request_size"`
	RequestTimeout   time.Duration `json:"request_timeout"`
	RateLimit        float64       `json:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst        int           `json:"rate_burst"`
	EnableCORS       bool          `json:"enable_cors"`
	BatchConcurrency int           `json:"batch_concurrency"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// NATSConfig configures the NATS request/reply responder. User and Password
// go together; Token is the alternative.
type NATSConfig struct {
	Enabled          bool          `json:"enabled"`
	URLs             []string      `json:"urls,omitempty"`
	Subject          string        `json:"subject"`
	QueueGroup       string        `json:"queue_group,omitempty"`
	Name             string        `json:"name,omitempty"`
	User             string        `json:"user,omitempty"`
	Password         string        `json:"password,omitempty"`
	Token            string        `json:"token,omitempty"`
	MaxReconnects    int           `json:"max_reconnects"`
	ReconnectWait    time.Duration `json:"reconnect_wait"`
	PingInterval     time.Duration `json:"ping_interval"`
	DrainTimeout     time.Duration `json:"drain_timeout"`
	HandlerTimeout   time.Duration `json:"handler_timeout"`
	CircuitThreshold int           `json:"circuit_threshold"`
}

// FormatsConfig selects converter groups
type FormatsConfig struct {
	Disabled []string `json:"disabled,omitempty"`
}

// Default returns the configuration used when no layer overrides a field.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{
			Enabled:          true,
			Port:             8080,
			MaxRequestSize:   10 << 20,
			RequestTimeout:   30 * time.Second,
			RateLimit:        100,
			RateBurst:        200,
			BatchConcurrency: 4,
		},
		Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Subject:       "formatkit.convert",
			QueueGroup:    "formatkit",
			Name:          "formatkit",
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
			PingInterval:     30 * time.Second,
			DrainTimeout:     30 * time.Second,
			HandlerTimeout:   30 * time.Second,
			CircuitThreshold: 5,
		},
	}
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format %q must be json or text", c.Log.Format)
	}

	if c.HTTP.Enabled {
		if err := validatePort("http.port", c.HTTP.Port); err != nil {
			return err
		}
		if c.HTTP.MaxRequestSize <= 0 {
			return invalid("http.max_request_size must be positive")
		}
		if c.HTTP.RequestTimeout < 0 {
			return invalid("http.request_timeout cannot be negative")
		}
		if c.HTTP.RateLimit < 0 || c.HTTP.RateBurst < 0 {
			return invalid("http.rate_limit and http.rate_burst cannot be negative")
		}
		if c.HTTP.BatchConcurrency < 1 {
			return invalid("http.batch_concurrency must be at least 1")
		}
	}

	if c.Metrics.Enabled {
		if err := validatePort("metrics.port", c.Metrics.Port); err != nil {
			return err
		}
		if c.HTTP.Enabled && c.Metrics.Port == c.HTTP.Port {
			return invalid("metrics.port and http.port must differ (both %d)", c.HTTP.Port)
		}
	}

	if c.NATS.Enabled {
		if len(c.NATS.URLs) == 0 {
			return invalid("nats.urls is required when nats is enabled")
		}
		if c.NATS.Subject == "" {
			return invalid("nats.subject is required when nats is enabled")
		}
		if (c.NATS.User == "") != (c.NATS.Password == "") {
			return invalid("nats.user and nats.password must be set together")
		}
		if c.NATS.Token != "" && c.NATS.User != "" {
			return invalid("nats.token and nats.user are mutually exclusive")
		}
		if c.NATS.PingInterval <= 0 || c.NATS.DrainTimeout <= 0 || c.NATS.HandlerTimeout <= 0 {
			return invalid("nats.ping_interval, nats.drain_timeout and nats.handler_timeout must be positive")
		}
		if c.NATS.CircuitThreshold < 1 {
			return invalid("nats.circuit_threshold must be at least 1")
		}
	}

	for _, g := range c.Formats.Disabled {
		if !slices.Contains(FormatGroups, g) {
			return invalid("formats.disabled: unknown group %q (known: %v)", g, FormatGroups)
		}
	}

	return nil
}

// GroupEnabled reports whether a converter group should be registered.
func (c *Config) GroupEnabled(group string) bool {
	return !slices.Contains(c.Formats.Disabled, group)
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return invalid("%s %d out of range 1-65535", field, port)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
