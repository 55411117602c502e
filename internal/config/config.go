// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for shopchat.
package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/shopchat-tui/internal/chatapi"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete shopchat configuration.
type Config struct {
	// Server settings
	Server ServerConfig `toml:"server"`

	// HTTP client settings
	HTTP HTTPConfig `toml:"http"`

	// UI settings
	UI UIConfig `toml:"ui"`
}

// ServerConfig identifies the backend and store.
type ServerConfig struct {
	// BaseURL is the backend origin (default: http://127.0.0.1:8000)
	BaseURL string `toml:"base_url"`
	// Store is the store slug prefixed to every API path
	Store string `toml:"store"`
}

// HTTPConfig tunes the backend client.
type HTTPConfig struct {
	// TimeoutSecs bounds non-streaming requests (default: 10)
	TimeoutSecs int `toml:"timeout_secs"`
	// RateLimit caps outbound API calls per second (default: 2)
	RateLimit float64 `toml:"rate_limit"`
	// RateBurst is the limiter burst size (default: 4)
	RateBurst int `toml:"rate_burst"`
}

// UIConfig controls the rendering collaborators.
type UIConfig struct {
	// Plain selects the line-mode REPL instead of the TUI
	Plain bool `toml:"plain"`
	// NoColor disables all terminal styling
	NoColor bool `toml:"no_color"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:8000",
		},
		HTTP: HTTPConfig{
			TimeoutSecs: 10,
			RateLimit:   2,
			RateBurst:   4,
		},
	}
}

// DefaultPath returns ~/.shopchat/config.toml, or "" if the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shopchat", "config.toml")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from path, layering file values over the
// defaults and environment variables over both. A missing file is not
// an error; the defaults simply stand.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays SHOPCHAT_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SHOPCHAT_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("SHOPCHAT_STORE"); v != "" {
		cfg.Server.Store = v
	}
	if v := os.Getenv("SHOPCHAT_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTP.TimeoutSecs = n
		}
	}
	if v := os.Getenv("SHOPCHAT_PLAIN"); v != "" {
		cfg.UI.Plain = isTruthy(v)
	}
	if v := os.Getenv("SHOPCHAT_NO_COLOR"); v != "" {
		cfg.UI.NoColor = isTruthy(v)
	}
}

func isTruthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("server.base_url must be an absolute URL")
	}
	if c.HTTP.TimeoutSecs <= 0 {
		return errors.New("http.timeout_secs must be positive")
	}
	if c.HTTP.RateLimit <= 0 {
		return errors.New("http.rate_limit must be positive")
	}
	return nil
}

// ClientConfig converts the configuration into the backend client's form.
func (c *Config) ClientConfig() *chatapi.ClientConfig {
	return &chatapi.ClientConfig{
		BaseURL:   c.Server.BaseURL,
		Org:       c.Server.Store,
		Timeout:   time.Duration(c.HTTP.TimeoutSecs) * time.Second,
		RateLimit: c.HTTP.RateLimit,
		RateBurst: c.HTTP.RateBurst,
	}
}
