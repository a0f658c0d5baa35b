// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration. Values come from environment
// variables with an optional JSON file providing defaults; environment
// always wins.
type Config struct {
	Port        int    `json:"port,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	RedisURL    string `json:"redis_url,omitempty"`
	GeminiKey   string `json:"gemini_api_key,omitempty"`

	// Trigger webhook signing keys. Next key may be empty outside of a
	// rotation window; when set, signatures against either key verify.
	SigningKey     string `json:"signing_key,omitempty"`
	NextSigningKey string `json:"next_signing_key,omitempty"`

	// Research (best-effort) stage
	SearchAPIKey string `json:"search_api_key,omitempty"`
	SearchCX     string `json:"search_cx,omitempty"`

	// Concurrency and shutdown
	MaxConcurrent int           `json:"max_concurrent,omitempty"` // default 10
	AdmitWait     time.Duration `json:"-"`                        // default 300s
	ShutdownGrace time.Duration `json:"-"`                        // default 120s
	JobDeadline   time.Duration `json:"-"`                        // default 90s
}

// Defaults applied when neither environment nor file provides a value.
const (
	DefaultPort          = 8080
	DefaultMaxConcurrent = 10
	DefaultAdmitWait     = 300 * time.Second
	DefaultShutdownGrace = 120 * time.Second
	DefaultJobDeadline   = 90 * time.Second
)

// Load builds a Config from the environment, optionally seeded from a JSON
// file. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiKey = v
	}
	if v := os.Getenv("TRIGGER_SIGNING_KEY"); v != "" {
		cfg.SigningKey = v
	}
	if v := os.Getenv("TRIGGER_NEXT_SIGNING_KEY"); v != "" {
		cfg.NextSigningKey = v
	}
	if v := os.Getenv("GOOGLE_SEARCH_API_KEY"); v != "" {
		cfg.SearchAPIKey = v
	}
	if v := os.Getenv("GOOGLE_SEARCH_CX"); v != "" {
		cfg.SearchCX = v
	}
	if v := os.Getenv("MAX_CONCURRENT_GENERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv("ADMIT_WAIT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AdmitWait = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SHUTDOWN_GRACE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ShutdownGrace = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("JOB_DEADLINE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.JobDeadline = time.Duration(n) * time.Second
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.AdmitWait == 0 {
		cfg.AdmitWait = DefaultAdmitWait
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.JobDeadline == 0 {
		cfg.JobDeadline = DefaultJobDeadline
	}
}

// Validate checks that the configuration has all required values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("config error: REDIS_URL is required")
	}
	if c.SigningKey == "" {
		return fmt.Errorf("config error: TRIGGER_SIGNING_KEY is required")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("config error: max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	return nil
}
