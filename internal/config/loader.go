package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// LookupFunc reports the value of an environment variable and whether it is
// set. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an explicit variable source. Every missing or
// malformed variable is reported, not just the first.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	l := envLoader{lookup: lookup}
	l.load(reflect.ValueOf(cfg).Elem())
	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// envLoader populates tagged struct fields:
//
//	env:"NAME"         primary variable
//	envAlt:"NAME"      fallback variable
//	default:"value"    used when neither is set
//	required:"true"    unset is an error
type envLoader struct {
	lookup LookupFunc
	errs   []error
}

func (l *envLoader) get(name string) string {
	if name == "" {
		return ""
	}
	v, _ := l.lookup(name)
	return strings.TrimSpace(v)
}

func (l *envLoader) load(v reflect.Value) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			l.load(fv)
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value := l.get(name)
		if value == "" {
			value = l.get(field.Tag.Get("envAlt"))
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				l.errs = append(l.errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}
		if err := setField(fv, value); err != nil {
			l.errs = append(l.errs, fmt.Errorf("invalid value for %s=%q: %w", name, value, err))
		}
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField parses value into the field's type.
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var items []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, "SERVER_MAX_BODY_SIZE must be positive")
	}

	// Grid defaults
	if c.Grid.PageSize < 0 {
		errs = append(errs, "GRID_PAGE_SIZE must be non-negative")
	}
	if c.Grid.RowHeight <= 0 {
		errs = append(errs, "GRID_ROW_HEIGHT must be positive")
	}
	if c.Grid.RowOverscan < 0 || c.Grid.ColumnOverscan < 0 {
		errs = append(errs, "GRID_ROW_OVERSCAN and GRID_COLUMN_OVERSCAN must be non-negative")
	}
	if c.Grid.MaxPinnedTop < 0 || c.Grid.MaxPinnedBottom < 0 {
		errs = append(errs, "GRID_MAX_PINNED_TOP and GRID_MAX_PINNED_BOTTOM must be non-negative")
	}

	// Preset validation
	switch strings.ToLower(c.Presets.Backend) {
	case "memory":
	case "file", "sqlite":
		if c.Presets.Path == "" {
			errs = append(errs, fmt.Sprintf("PRESET_PATH is required for the %s backend", c.Presets.Backend))
		}
	case "postgres":
		if c.Presets.DatabaseURL == "" {
			errs = append(errs, "PRESET_DATABASE_URL is required for the postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("PRESET_BACKEND (%q) must be one of: memory, file, sqlite, postgres", c.Presets.Backend))
	}
	if c.Presets.AutoSaveDelay < 0 {
		errs = append(errs, "PRESET_AUTOSAVE_DELAY must be non-negative")
	}

	// Remote validation
	if c.Remote.Enabled() {
		if c.Remote.Table == "" {
			errs = append(errs, "REMOTE_TABLE is required when REMOTE_DATABASE_URL is set")
		}
		if c.Remote.BlockSize <= 0 {
			errs = append(errs, "REMOTE_BLOCK_SIZE must be positive")
		}
		if c.Remote.MaxConcurrent <= 0 {
			errs = append(errs, "REMOTE_MAX_CONCURRENT must be positive")
		}
		if c.Remote.MaxConns <= 0 {
			errs = append(errs, "REMOTE_MAX_CONNS must be positive")
		}
	}

	// Session validation
	if c.Sessions.IdleTTL <= 0 {
		errs = append(errs, "SESSION_IDLE_TTL must be positive")
	}
	if c.Sessions.SweepSchedule == "" {
		errs = append(errs, "SESSION_SWEEP_SCHEDULE is required")
	} else if _, err := cron.ParseStandard(c.Sessions.SweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("SESSION_SWEEP_SCHEDULE (%q) is not a valid cron spec: %v", c.Sessions.SweepSchedule, err))
	}
	if c.Sessions.MaxSessions <= 0 {
		errs = append(errs, "SESSION_MAX must be positive")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Grid: {PageSize: %d, RowHeight: %g}, ", c.Grid.PageSize, c.Grid.RowHeight))
	b.WriteString(fmt.Sprintf("Presets: {Backend: %q, Path: %q, DatabaseURL: %s}, ",
		c.Presets.Backend, c.Presets.Path, mask(c.Presets.DatabaseURL)))
	b.WriteString(fmt.Sprintf("Remote: {DatabaseURL: %s, Table: %q, BlockSize: %d}, ",
		mask(c.Remote.DatabaseURL), c.Remote.Table, c.Remote.BlockSize))
	b.WriteString(fmt.Sprintf("Sessions: {IdleTTL: %v, MaxSessions: %d}, ", c.Sessions.IdleTTL, c.Sessions.MaxSessions))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(url string) string {
	if url == "" {
		return `""`
	}
	return "[MASKED]"
}
