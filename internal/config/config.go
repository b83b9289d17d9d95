// Package config provides centralized configuration management for the grid
// server. It loads configuration from environment variables with defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Grid     GridConfig
	Presets  PresetConfig
	Remote   RemoteConfig
	Sessions SessionConfig
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

	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize caps JSON request bodies in bytes (default: 32MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"33554432"`
}

// GridConfig holds the defaults applied to every new grid session.
type GridConfig struct {
	PageSize        int           `env:"GRID_PAGE_SIZE" default:"100"`
	RowHeight       float64       `env:"GRID_ROW_HEIGHT" default:"35"`
	RowOverscan     int           `env:"GRID_ROW_OVERSCAN" default:"5"`
	ColumnOverscan  int           `env:"GRID_COLUMN_OVERSCAN" default:"2"`
	MaxPinnedTop    int           `env:"GRID_MAX_PINNED_TOP" default:"5"`
	MaxPinnedBottom int           `env:"GRID_MAX_PINNED_BOTTOM" default:"5"`
	ScrollThrottle  time.Duration `env:"GRID_SCROLL_THROTTLE" default:"16ms"`
}

// PresetConfig selects where saved grid configurations live.
type PresetConfig struct {
	// Backend is one of memory, file, sqlite, postgres (default: memory)
	Backend string `env:"PRESET_BACKEND" default:"memory"`

	// Path is the JSON file (file) or database file (sqlite)
	Path string `env:"PRESET_PATH" default:"presets.json"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	DatabaseURL string `env:"PRESET_DATABASE_URL" envAlt:"DATABASE_URL"`

	// AutoSaveDelay is the debounce before a changed configuration is saved (default: 500ms)
	AutoSaveDelay time.Duration `env:"PRESET_AUTOSAVE_DELAY" default:"500ms"`
}

// RemoteConfig configures the optional PostgreSQL-backed row source.
// Remote mode is disabled when DatabaseURL is empty.
type RemoteConfig struct {
	DatabaseURL string `env:"REMOTE_DATABASE_URL" envAlt:"DB_URL"`

	// Table is the relation rows are read from
	Table string `env:"REMOTE_TABLE"`

	// IDColumn names the primary key used as row id (default: id)
	IDColumn string `env:"REMOTE_ID_COLUMN" default:"id"`

	// ParentColumn, when set, lets tree grids load children lazily by
	// matching this column against the expanded node's id
	ParentColumn string `env:"REMOTE_PARENT_COLUMN"`

	BlockSize     int `env:"REMOTE_BLOCK_SIZE" default:"100"`
	MaxBlocks     int `env:"REMOTE_MAX_BLOCKS" default:"50"`
	MaxConcurrent int `env:"REMOTE_MAX_CONCURRENT" default:"4"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"REMOTE_MAX_CONNS" default:"10"`

	FetchTimeout time.Duration `env:"REMOTE_FETCH_TIMEOUT" default:"30s"`
}

// Enabled reports whether a remote source is configured.
func (c *RemoteConfig) Enabled() bool { return c.DatabaseURL != "" }

// SessionConfig controls how long idle grid sessions are kept.
type SessionConfig struct {
	// IdleTTL is how long a session may go untouched (default: 30m)
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"30m"`

	// SweepSchedule is a cron spec for the idle sweeper (default: every minute)
	SweepSchedule string `env:"SESSION_SWEEP_SCHEDULE" default:"@every 1m"`

	// MaxSessions bounds concurrently open sessions (default: 1000)
	MaxSessions int `env:"SESSION_MAX" default:"1000"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of accepted X-API-Key values
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey enables API key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`
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
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
