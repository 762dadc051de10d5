// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every setting can be configured via environment variables; an optional
// YAML file (see LoadFile) can set the same fields.
type Config struct {
	Server   ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Upload   UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Rate     RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Security SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig   `yaml:"logging" envconfig:"LOG"`
	Pipeline PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Chart    ChartConfig     `yaml:"chart" envconfig:"CHART"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (SERVER_HOST, default: 0.0.0.0)
	Host string `yaml:"host" envconfig:"HOST" default:"0.0.0.0"`

	// Port is the port to listen on (SERVER_PORT, default: 8080)
	Port int `yaml:"port" envconfig:"PORT" default:"8080"`

	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for
	// running batches (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"2m"`
}

// UploadConfig holds limits on uploaded files.
type UploadConfig struct {
	// MaxFileSize is the largest accepted file in bytes (default: 50MB)
	MaxFileSize int64 `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"52428800"`

	// MaxRequestSize caps a whole multipart request (default: 200MB)
	MaxRequestSize int64 `yaml:"max_request_size" envconfig:"MAX_REQUEST_SIZE" default:"209715200"`

	// MaxFiles is the number of files accepted per request (default: 20)
	MaxFiles int `yaml:"max_files" envconfig:"MAX_FILES" default:"20"`

	// MaxConcurrent is the number of batches processed at once (default: 4)
	MaxConcurrent int `yaml:"max_concurrent" envconfig:"MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a processing slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" envconfig:"MAX_WAIT_TIME" default:"30s"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `yaml:"enabled" envconfig:"ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE" default:"100"`

	// ProcessLimit is requests per minute for endpoints that run the
	// pipeline (default: 20)
	ProcessLimit int `yaml:"process_limit" envconfig:"PROCESS" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	// (SECURITY_TRUSTED_PROXIES, or TRUSTED_PROXIES)
	TrustedProxies []string `yaml:"trusted_proxies" envconfig:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `yaml:"enable_csp" envconfig:"ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" envconfig:"LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" envconfig:"FORMAT" default:"text"`

	// SeqURL, when set, also ships logs to a Seq server (LOG_SEQ_URL)
	SeqURL string `yaml:"seq_url" envconfig:"SEQ_URL"`
}

// PipelineConfig holds data pipeline settings.
type PipelineConfig struct {
	// PreviewRows is the number of rows shown in previews (default: 5)
	PreviewRows int `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" default:"5"`

	// EmptyNumericFill decides what mean imputation does with a numeric
	// column that has no values: "leave" or "zero" (default: leave)
	EmptyNumericFill string `yaml:"empty_numeric_fill" envconfig:"EMPTY_NUMERIC_FILL" default:"leave"`
}

// ChartConfig sizes rendered charts in pixels.
type ChartConfig struct {
	Width  int `yaml:"width" envconfig:"WIDTH" default:"960"`
	Height int `yaml:"height" envconfig:"HEIGHT" default:"480"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
