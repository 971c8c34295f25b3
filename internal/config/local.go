package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// LocalConfig holds configuration for the chatty CLI and MCP server
type LocalConfig struct {
	LogLevel   string           `yaml:"log_level"`
	Curriculum CurriculumConfig `yaml:"curriculum"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
}

// CurriculumConfig selects the lesson content. An empty path means the
// built-in curriculum.
type CurriculumConfig struct {
	Path string `yaml:"path,omitempty"`
}

// StorageConfig selects and configures the learner store
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	File     FileConfig     `yaml:"file"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// FileConfig holds settings for the JSON file store
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// SQLiteConfig holds settings for the SQLite store
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds settings for the PostgreSQL store
type PostgresConfig struct {
	URL      string `yaml:"-"` // Loaded from secrets.yaml or the environment
	MaxConns int    `yaml:"max_conns"`
}

// RedisConfig holds settings for the Redis store
type RedisConfig struct {
	URL       string `yaml:"-"` // Loaded from secrets.yaml or the environment
	KeyPrefix string `yaml:"key_prefix"`
}

// EventsConfig holds progress event publishing settings
type EventsConfig struct {
	Enabled               bool   `yaml:"enabled"`
	RabbitMQURL           string `yaml:"-"` // Loaded from secrets.yaml or the environment
	Queue                 string `yaml:"queue"`
	FailureThreshold      int    `yaml:"failure_threshold"`
	OpenTimeoutSeconds    int    `yaml:"open_timeout_seconds"`
	PublishTimeoutSeconds int    `yaml:"publish_timeout_seconds"`
}

// OpenTimeout is how long the publisher circuit stays open
func (e EventsConfig) OpenTimeout() time.Duration {
	return time.Duration(e.OpenTimeoutSeconds) * time.Second
}

// PublishTimeout bounds a single publish
func (e EventsConfig) PublishTimeout() time.Duration {
	return time.Duration(e.PublishTimeoutSeconds) * time.Second
}

// SecretsConfig holds connection strings loaded from secrets.yaml
type SecretsConfig struct {
	PostgresURL string `yaml:"postgres_url,omitempty"`
	RedisURL    string `yaml:"redis_url,omitempty"`
	RabbitMQURL string `yaml:"rabbitmq_url,omitempty"`
}

// ChattyDir returns the path to ~/.chatty
func ChattyDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".chatty"), nil
}

// EnsureChattyDir creates ~/.chatty and its subdirectories if they don't exist
func EnsureChattyDir() (string, error) {
	dir, err := ChattyDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "data"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns defaults rooted at dir
func DefaultLocalConfig(dir string) *LocalConfig {
	return &LocalConfig{
		LogLevel: "info",
		Storage: StorageConfig{
			Backend: BackendFile,
			File: FileConfig{
				Dir: filepath.Join(dir, "data"),
			},
			SQLite: SQLiteConfig{
				Path: filepath.Join(dir, "data", "chatty.db"),
			},
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
			Redis: RedisConfig{
				KeyPrefix: "chatty:learner:",
			},
		},
		Events: EventsConfig{
			Enabled:               false,
			Queue:                 "chatty.progress",
			FailureThreshold:      3,
			OpenTimeoutSeconds:    30,
			PublishTimeoutSeconds: 2,
		},
	}
}

// LoadLocalConfig loads ~/.chatty/config.yaml and secrets.yaml, applies
// CHATTY_* environment overrides and validates the result.
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := ChattyDir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(dir)
}

// LoadLocalConfigFrom is LoadLocalConfig for an explicit directory.
// A missing config file yields the defaults.
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig(dir)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets loads connection strings from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	if secrets.PostgresURL != "" {
		cfg.Storage.Postgres.URL = secrets.PostgresURL
	}
	if secrets.RedisURL != "" {
		cfg.Storage.Redis.URL = secrets.RedisURL
	}
	if secrets.RabbitMQURL != "" {
		cfg.Events.RabbitMQURL = secrets.RabbitMQURL
	}
	return nil
}

// SaveLocalConfig writes cfg to dir/config.yaml. Connection strings are not
// written; see SaveSecrets.
func SaveLocalConfig(dir string, cfg *LocalConfig) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveSecrets writes connection strings to dir/secrets.yaml, readable by the
// owner only.
func SaveSecrets(dir string, secrets SecretsConfig) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}
