// Package config loads chatty settings from ~/.chatty and CHATTY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// applyEnv overrides file settings with CHATTY_* environment variables
func applyEnv(cfg *LocalConfig) {
	cfg.LogLevel = getEnv("CHATTY_LOG_LEVEL", cfg.LogLevel)
	cfg.Curriculum.Path = getEnv("CHATTY_CURRICULUM_PATH", cfg.Curriculum.Path)

	cfg.Storage.Backend = getEnv("CHATTY_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.File.Dir = getEnv("CHATTY_STORAGE_DIR", cfg.Storage.File.Dir)
	cfg.Storage.SQLite.Path = getEnv("CHATTY_SQLITE_PATH", cfg.Storage.SQLite.Path)
	cfg.Storage.Postgres.URL = getEnv("CHATTY_POSTGRES_URL", cfg.Storage.Postgres.URL)
	cfg.Storage.Postgres.MaxConns = getEnvInt("CHATTY_POSTGRES_MAX_CONNS", cfg.Storage.Postgres.MaxConns)
	cfg.Storage.Redis.URL = getEnv("CHATTY_REDIS_URL", cfg.Storage.Redis.URL)

	cfg.Events.Enabled = getEnvBool("CHATTY_EVENTS_ENABLED", cfg.Events.Enabled)
	cfg.Events.RabbitMQURL = getEnv("CHATTY_RABBITMQ_URL", cfg.Events.RabbitMQURL)
	cfg.Events.Queue = getEnv("CHATTY_EVENTS_QUEUE", cfg.Events.Queue)
}

// Validate rejects unknown backends and missing backend settings
func (c *LocalConfig) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.File.Dir == "" {
			return fmt.Errorf("%w: storage.file.dir is required", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("%w: storage.sqlite.path is required", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Storage.Postgres.URL == "" {
			return fmt.Errorf("%w: CHATTY_POSTGRES_URL or secrets postgres_url is required", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Storage.Redis.URL == "" {
			return fmt.Errorf("%w: CHATTY_REDIS_URL or secrets redis_url is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Events.Enabled {
		if c.Events.RabbitMQURL == "" {
			return fmt.Errorf("%w: events enabled without a RabbitMQ URL", ErrInvalidConfig)
		}
		if c.Events.FailureThreshold < 1 {
			return fmt.Errorf("%w: events.failure_threshold must be at least 1", ErrInvalidConfig)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
