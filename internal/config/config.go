// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Mutable settings the
// search path depends on (cache toggle, shared secret) live here and
// are injected into components at construction, never read from
// ambient global state.
type Config struct {
	// Server configuration
	Host string `envconfig:"HOUND_HOST" yaml:"host"`
	Port int    `envconfig:"HOUND_PORT" yaml:"port"`

	// Backend configuration
	Backend BackendConfig `yaml:"backend"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Search configuration
	Search SearchConfig `yaml:"search"`

	// Events configuration
	Events EventsConfig `yaml:"events"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// BackendConfig holds search backend connection settings.
type BackendConfig struct {
	URL            string `envconfig:"HOUND_BACKEND_URL" yaml:"url"`
	SharedSecret   string `envconfig:"HOUND_BACKEND_SECRET" yaml:"shared_secret"`
	TimeoutSeconds int    `envconfig:"HOUND_BACKEND_TIMEOUT" yaml:"timeout_seconds"`
}

// CacheConfig holds pagination cache settings.
type CacheConfig struct {
	Enabled  bool   `envconfig:"HOUND_CACHE_ENABLED" yaml:"enabled"`
	RedisURL string `envconfig:"HOUND_REDIS_URL" yaml:"redis_url"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	PerPage          int  `envconfig:"HOUND_PER_PAGE" yaml:"per_page"`
	MaxPerPage       int  `envconfig:"HOUND_MAX_PER_PAGE" yaml:"max_per_page"`
	CountLimit       int  `envconfig:"HOUND_COUNT_LIMIT" yaml:"count_limit"`
	NumContextLines  int  `envconfig:"HOUND_CONTEXT_LINES" yaml:"num_context_lines"`
	MaxChunksPerFile int  `envconfig:"HOUND_MAX_CHUNKS_PER_FILE" yaml:"max_chunks_per_file"`
	RewriteFilters   bool `envconfig:"HOUND_REWRITE_FILTERS" yaml:"rewrite_filters"`
}

// EventsConfig holds audit event bus settings.
type EventsConfig struct {
	Type         string `envconfig:"HOUND_EVENTS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"HOUND_KAFKA_BROKERS" yaml:"kafka_brokers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"HOUND_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"HOUND_LOG_FORMAT" yaml:"format"`
}

// RateLimitConfig holds HTTP rate limit settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"HOUND_RATE_LIMIT" yaml:"requests_per_second"`
	Burst             int     `envconfig:"HOUND_RATE_BURST" yaml:"burst"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Environment variables take highest priority.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8090

	cfg.Backend = BackendConfig{
		URL:            "http://localhost:6070",
		TimeoutSeconds: 120,
	}

	cfg.Cache = CacheConfig{
		Enabled:  true,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Search = SearchConfig{
		PerPage:          20,
		MaxPerPage:       40,
		CountLimit:       5000,
		NumContextLines:  3,
		MaxChunksPerFile: 3,
		RewriteFilters:   true,
	}

	cfg.Events = EventsConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Backend.URL == "" {
		errs = append(errs, "backend url cannot be empty")
	}

	if c.Backend.TimeoutSeconds < 1 {
		errs = append(errs, "backend timeout must be positive")
	}

	if c.Search.PerPage < 1 {
		errs = append(errs, "per_page must be positive")
	}

	if c.Search.MaxPerPage < c.Search.PerPage {
		errs = append(errs, "max_per_page must be at least per_page")
	}

	if c.Search.CountLimit < 1 {
		errs = append(errs, "count_limit must be positive")
	}

	if c.Search.MaxChunksPerFile < 0 || c.Search.MaxChunksPerFile > 50 {
		errs = append(errs, "max_chunks_per_file must be between 0 and 50")
	}

	validEventTypes := map[string]bool{"memory": true, "kafka": true}
	if !validEventTypes[c.Events.Type] {
		errs = append(errs, fmt.Sprintf("invalid events type: %s (must be memory or kafka)", c.Events.Type))
	}

	if c.Events.Type == "kafka" && c.Events.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers cannot be empty when events type is kafka")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaBrokerList splits the configured broker string.
func (c *Config) KafkaBrokerList() []string {
	if c.Events.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.Events.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
