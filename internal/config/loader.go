package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zheng/jsdeps/internal/analyzer"
)

// configName is the config file name without extension.
const configName = ".jsdeps"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for jsdeps settings.
const envPrefix = "JSDEPS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from .env, the config file, env vars and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Export.Format = strings.ToLower(cfg.Export.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DB:       DBConfig{Path: DefaultDBPath},
		Log:      LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Watch:    WatchConfig{Debounce: DefaultWatchDebounce},
		Server:   ServerConfig{Host: DefaultServerHost, Port: DefaultServerPort},
		Export:   ExportConfig{Format: DefaultExportFormat},
		Query:    QueryConfig{Limit: DefaultQueryLimit},
		Analysis: AnalysisConfig{Extensions: append([]string(nil), analyzer.SourceExtensions...)},
	}
}

func applyDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("export.format", d.Export.Format)
	v.SetDefault("query.limit", d.Query.Limit)
	v.SetDefault("analysis.extensions", d.Analysis.Extensions)
}

// Addr returns host:port for the web server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
