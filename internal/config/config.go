// Package config provides centralized configuration management for the
// spraylog binaries. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
//
// The API server reads a full Config via Load; the command-line client reads
// only a ClientConfig via LoadClient.
package config

import (
	"strconv"
	"time"
)

// Storage drivers for the API server.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Client backends.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Config holds all API server configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// MaxBodySize caps the size of a record request body in bytes (default: 64KB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"65536"`
}

// StorageConfig selects and tunes the server's persistence.
type StorageConfig struct {
	// Driver is the storage engine: postgres or sqlite (default: sqlite)
	Driver string `env:"STORAGE_DRIVER" default:"sqlite"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// SQLitePath is the database file for the sqlite driver (default: spraylog.db)
	SQLitePath string `env:"SQLITE_PATH" default:"spraylog.db"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// MutationLimit is requests per minute for write endpoints (default: 30)
	MutationLimit int `env:"RATE_LIMIT_MUTATIONS" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AllowedOrigins is a comma-separated list of origins allowed to call the API
	// from a browser. Empty disables CORS headers.
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ClientConfig holds command-line client settings. Flags override them.
type ClientConfig struct {
	// Backend is where records live: remote or local (default: local)
	Backend string `env:"SPRAYLOG_BACKEND" default:"local"`

	// APIURL is the records API base URL for the remote backend
	APIURL string `env:"SPRAYLOG_API_URL" default:"http://localhost:8080/api"`

	// DataDir is the directory holding the local backend's storage file.
	// Empty means the user config directory.
	DataDir string `env:"SPRAYLOG_DATA_DIR"`

	// Timeout bounds each remote request (default: 10s)
	Timeout time.Duration `env:"SPRAYLOG_TIMEOUT" default:"10s"`

	// MaxWait is how long a command waits for an in-flight operation (default: 30s)
	MaxWait time.Duration `env:"SPRAYLOG_MAX_WAIT" default:"30s"`

	// LogLevel is the client's diagnostic level (default: warn)
	LogLevel string `env:"SPRAYLOG_LOG_LEVEL" default:"warn"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
