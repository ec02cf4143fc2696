// Package config loads jsdeps settings from defaults, an optional config
// file, .env and JSDEPS_* environment variables.
package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Server   ServerConfig   `mapstructure:"server"`
	Export   ExportConfig   `mapstructure:"export"`
	Query    QueryConfig    `mapstructure:"query"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// DBConfig holds the sqlite location.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ServerConfig holds the web API listen address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ExportConfig holds the default export format.
type ExportConfig struct {
	Format string `mapstructure:"format"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	Limit int `mapstructure:"limit"`
}

// AnalysisConfig is informational; the scanned extensions are fixed.
type AnalysisConfig struct {
	Extensions []string `mapstructure:"extensions"`
}

// Defaults.
const (
	DefaultDBPath        = ".jsdeps.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultWatchDebounce = 500 * time.Millisecond
	DefaultServerHost    = "localhost"
	DefaultServerPort    = 9998
	DefaultExportFormat  = "json"
	DefaultQueryLimit    = 50
)

const maxPort = 65535

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
	// ExportFormats lists the formats accepted by export.format.
	ExportFormats = []string{"json", "yaml", "dot", "mermaid", "markdown"}
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidDBPath indicates an empty database path.
	ErrInvalidDBPath = errors.New("db.path must not be empty")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
	// ErrInvalidDebounce indicates a non-positive debounce interval.
	ErrInvalidDebounce = errors.New("watch.debounce must be positive")
	// ErrInvalidPort indicates a port outside 1..65535.
	ErrInvalidPort = errors.New("server.port must be between 1 and 65535")
	// ErrInvalidExportFormat indicates an unknown export format.
	ErrInvalidExportFormat = errors.New("export.format must be one of json, yaml, dot, mermaid, markdown")
	// ErrInvalidQueryLimit indicates a non-positive query limit.
	ErrInvalidQueryLimit = errors.New("query.limit must be positive")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return ErrInvalidDBPath
	}

	if !contains(validLevels, c.Log.Level) {
		return ErrInvalidLogLevel
	}

	if !contains(validFormats, c.Log.Format) {
		return ErrInvalidLogFormat
	}

	if c.Watch.Debounce <= 0 {
		return ErrInvalidDebounce
	}

	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return ErrInvalidPort
	}

	if !contains(ExportFormats, c.Export.Format) {
		return ErrInvalidExportFormat
	}

	if c.Query.Limit <= 0 {
		return ErrInvalidQueryLimit
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
