// Package config loads the merchantsync application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration, read from
// ~/.merchantsync/config.toml by default.
type Config struct {
	// MerchantID is the merchant centre account ID.
	MerchantID uint64 `toml:"merchant_id"`

	// CredentialsFile is the path to the OAuth client credentials JSON.
	CredentialsFile string `toml:"credentials_file"`

	// Account labels the stored token. Defaults to "default" so a single
	// merchant setup needs no configuration.
	Account string `toml:"account"`

	// BaseURL overrides the Content API endpoint. Empty uses the real API.
	BaseURL string `toml:"base_url"`

	RateLimit RateLimit `toml:"rate_limit"`
}

// RateLimit configures client-side Content API throttling.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Account: "default",
		RateLimit: RateLimit{
			RequestsPerSecond: 5.0,
			Burst:             10,
		},
	}
}

// Dir returns the merchantsync configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".merchantsync"), nil
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration from path. An empty path uses the default
// location; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Account == "" {
		cfg.Account = "default"
	}
	return cfg, nil
}

// Save writes the configuration to path, creating the directory if needed.
// An empty path uses the default location.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
