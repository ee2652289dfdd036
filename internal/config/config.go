// Package config loads ragadmin settings and wires logging.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all settings. Precedence: defaults, then the YAML file,
// then environment variables.
type Config struct {
	ServerURL      string        `env:"RAGADMIN_SERVER_URL" yaml:"server_url"`
	RequestTimeout time.Duration `env:"RAGADMIN_REQUEST_TIMEOUT" yaml:"request_timeout"`
	MaxRetries     int           `env:"RAGADMIN_MAX_RETRIES" yaml:"max_retries"`
	RetryDelay     time.Duration `env:"RAGADMIN_RETRY_DELAY" yaml:"retry_delay"`
	PollInterval   time.Duration `env:"RAGADMIN_POLL_INTERVAL" yaml:"poll_interval"`
	ValidateTTL    time.Duration `env:"RAGADMIN_VALIDATE_TTL" yaml:"validate_ttl"`
	Cooldown       time.Duration `env:"RAGADMIN_COOLDOWN" yaml:"cooldown"`
	LogBufferCap   int           `env:"RAGADMIN_LOG_BUFFER" yaml:"log_buffer"`
	LogFile        string        `env:"RAGADMIN_LOG_FILE" yaml:"log_file"`
	LogLevel       string        `env:"RAGADMIN_LOG_LEVEL" yaml:"log_level"`
	TokenFile      string        `env:"RAGADMIN_TOKEN_FILE" yaml:"token_file"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ServerURL:      "http://localhost:8484",
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     500 * time.Millisecond,
		PollInterval:   2 * time.Second,
		ValidateTTL:    5 * time.Minute,
		Cooldown:       2 * time.Second,
		LogBufferCap:   500,
		LogFile:        "/tmp/ragadmin.log",
		LogLevel:       "INFO",
		TokenFile:      defaultTokenFile(),
	}
}

// Load reads the config file (when present) and applies the environment
// on top of the defaults.
func Load() (Config, error) {
	cfg := Defaults()

	if path := configFilePath(); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func configFilePath() string {
	if path := os.Getenv("RAGADMIN_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ragadmin.yaml")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ragadmin", "token")
}

// Level parses the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
