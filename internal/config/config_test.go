package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Backend.URL != "http://localhost:6070" {
		t.Errorf("Backend.URL = %s", cfg.Backend.URL)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache disabled by default")
	}
	if cfg.Search.PerPage != 20 || cfg.Search.MaxPerPage != 40 {
		t.Errorf("page sizes = %d/%d", cfg.Search.PerPage, cfg.Search.MaxPerPage)
	}
	if cfg.Search.CountLimit != 5000 {
		t.Errorf("CountLimit = %d", cfg.Search.CountLimit)
	}
	if cfg.Events.Type != "memory" {
		t.Errorf("Events.Type = %s", cfg.Events.Type)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: 9000
backend:
  url: http://backend:6070
  shared_secret: topsecret
search:
  per_page: 25
  max_per_page: 100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Backend.SharedSecret != "topsecret" {
		t.Errorf("SharedSecret = %q", cfg.Backend.SharedSecret)
	}
	if cfg.Search.PerPage != 25 || cfg.Search.MaxPerPage != 100 {
		t.Errorf("page sizes = %d/%d", cfg.Search.PerPage, cfg.Search.MaxPerPage)
	}
	// Untouched settings keep their defaults.
	if cfg.Search.CountLimit != 5000 {
		t.Errorf("CountLimit = %d", cfg.Search.CountLimit)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 9000\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("HOUND_PORT", "9500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9500 {
		t.Errorf("Port = %d, want env override 9500", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	invalid := []func(*Config){
		func(c *Config) { c.Port = 0 },
		func(c *Config) { c.Backend.URL = "" },
		func(c *Config) { c.Backend.TimeoutSeconds = 0 },
		func(c *Config) { c.Search.PerPage = 0 },
		func(c *Config) { c.Search.MaxPerPage = 5 },
		func(c *Config) { c.Search.MaxChunksPerFile = 51 },
		func(c *Config) { c.Events.Type = "rabbitmq" },
		func(c *Config) { c.Events.Type = "kafka" },
		func(c *Config) { c.Log.Level = "verbose" },
		func(c *Config) { c.Log.Format = "xml" },
	}

	for i, mutate := range invalid {
		cfg := &Config{}
		setDefaults(cfg)
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}

	cfg := &Config{}
	setDefaults(cfg)
	cfg.Events.Type = "kafka"
	cfg.Events.KafkaBrokers = "localhost:9092"
	if err := cfg.Validate(); err != nil {
		t.Errorf("kafka with brokers rejected: %v", err)
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 8090}
	if got := cfg.Address(); got != "127.0.0.1:8090" {
		t.Errorf("Address = %q", got)
	}
}

func TestKafkaBrokerList(t *testing.T) {
	cfg := &Config{}
	if got := cfg.KafkaBrokerList(); got != nil {
		t.Errorf("empty brokers = %v", got)
	}

	cfg.Events.KafkaBrokers = "b1:9092, b2:9092 ,"
	got := cfg.KafkaBrokerList()
	if len(got) != 2 || got[0] != "b1:9092" || got[1] != "b2:9092" {
		t.Errorf("brokers = %v", got)
	}
}
