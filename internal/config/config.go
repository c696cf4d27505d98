// Package config loads application settings from environment variables.
// Every field has a default except the database URL, which only the
// database-backed entry points require (see RequireDatabase).
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema creates missing tables on startup (default: false)
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"false"`
}

// ImportConfig holds file reading and import run settings.
type ImportConfig struct {
	// Charset is the default file charset (default: UTF-8)
	Charset string `env:"IMPORT_CHARSET" default:"UTF-8"`

	// Quote is the text delimiter that marks multi-line values (default: ")
	Quote string `env:"IMPORT_QUOTE" default:"\""`

	// Delimiter separates fields in a logical line (default: ,)
	Delimiter string `env:"IMPORT_DELIMITER" default:","`

	// Multiline merges quoted values spanning several lines (default: true)
	Multiline bool `env:"IMPORT_MULTILINE" default:"true"`

	// MergePolicy is "start" or "legacy" (default: start)
	MergePolicy string `env:"IMPORT_MERGE_POLICY" default:"start"`

	// ReplaceInvalid replaces undecodable bytes instead of failing (default: false)
	ReplaceInvalid bool `env:"IMPORT_REPLACE_INVALID" default:"false"`

	// PreviewMaxLines is the number of logical lines in a preview (default: 100)
	PreviewMaxLines int `env:"IMPORT_PREVIEW_MAX_LINES" default:"100"`

	// PreviewPolicy is "cap" or "legacy" (default: cap)
	PreviewPolicy string `env:"IMPORT_PREVIEW_POLICY" default:"cap"`

	// MaxFileSize is the maximum accepted file size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// ClientID is the default client for staging and import runs (default: 0)
	ClientID int64 `env:"IMPORT_CLIENT_ID" default:"0"`

	// MaxConcurrent is the maximum number of parallel import runs (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long to wait for an import slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single import run (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// QuoteRune returns the configured quote character.
func (c *ImportConfig) QuoteRune() rune {
	return firstRune(c.Quote)
}

// DelimiterRune returns the configured field delimiter.
func (c *ImportConfig) DelimiterRune() rune {
	return firstRune(c.Delimiter)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
