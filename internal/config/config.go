// Package config loads comment loader settings from a YAML file, a .env
// file, and COMMENTS_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thorsell/comments/internal/client"
	"github.com/thorsell/comments/internal/view"
)

// Defaults.
const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultEndpoint = "/api/comment"
	DefaultLogLevel = "info"
)

// Config holds every setting the loader, page host, and CLI read.
type Config struct {
	BaseURL      string `yaml:"base_url,omitempty" json:"base_url" env:"COMMENTS_BASE_URL"`
	Endpoint     string `yaml:"endpoint,omitempty" json:"endpoint" env:"COMMENTS_ENDPOINT"`
	MountID      string `yaml:"mount_id,omitempty" json:"mount_id" env:"COMMENTS_MOUNT_ID"`
	StrictStatus bool   `yaml:"strict_status,omitempty" json:"strict_status" env:"COMMENTS_STRICT_STATUS"`
	LogLevel     string `yaml:"log_level,omitempty" json:"log_level" env:"COMMENTS_LOG_LEVEL"`
	DevMode      bool   `yaml:"dev,omitempty" json:"dev" env:"COMMENTS_DEV"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Endpoint: DefaultEndpoint,
		MountID:  view.DefaultMountID,
		LogLevel: DefaultLogLevel,
	}
}

// DefaultPath returns ~/.config/comments/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "comments", "config.yaml"), nil
}

// Load builds a Config from defaults, the YAML file at path (a missing
// file is not an error), a .env file in the working directory, and the
// process environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = merge(cfg, fileCfg)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks that the config can drive a load.
func (c Config) Validate() error {
	if err := ValidateEndpoint(c.Endpoint); err != nil {
		return err
	}
	if strings.TrimSpace(c.MountID) == "" {
		return fmt.Errorf("mount_id is required")
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base_url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("base_url %q must be an http or https URL", c.BaseURL)
	}
	return nil
}

// ValidateEndpoint requires a root-relative path such as /api/comment so
// the loader always talks to the host that served the page.
func ValidateEndpoint(endpoint string) error {
	if _, err := client.ParseEndpoint(endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if !strings.HasPrefix(endpoint, "/") {
		return fmt.Errorf("invalid endpoint %q: must start with /", endpoint)
	}
	return nil
}

// Set assigns a single setting by its YAML key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "base_url":
		c.BaseURL = value
	case "endpoint":
		c.Endpoint = value
	case "mount_id":
		c.MountID = value
	case "log_level":
		c.LogLevel = value
	case "strict_status", "dev":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "dev" {
			c.DevMode = b
		} else {
			c.StrictStatus = b
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// ReadFile reads the YAML file at path without applying defaults or the
// environment. A missing file yields a zero Config.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// merge overlays the non-zero fields of override onto base.
func merge(base, override Config) Config {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.MountID != "" {
		base.MountID = override.MountID
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	base.StrictStatus = base.StrictStatus || override.StrictStatus
	base.DevMode = base.DevMode || override.DevMode
	return base
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", value)
}
