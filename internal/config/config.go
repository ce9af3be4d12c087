package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr      = ":8080"
	DefaultHealthTimeout   = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultPreviewMaxEdge  = 256
	DefaultMaxUploadBytes  = 10 << 20
)

// Config holds everything the console needs at startup.
type Config struct {
	// APIBaseURL is the classification backend, e.g. https://plant-api.onrender.com.
	// Empty means unconfigured; submissions stay disabled.
	APIBaseURL      string        `yaml:"api_base_url"`
	ListenAddr      string        `yaml:"listen_addr"`
	HealthTimeout   time.Duration `yaml:"health_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"` // 0 disables the client-side deadline
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	Preview         PreviewConfig `yaml:"preview"`
	Log             LogConfig     `yaml:"log"`
}

// PreviewConfig controls thumbnail generation for the selected file.
type PreviewConfig struct {
	Dir     string `yaml:"dir"` // empty uses a fresh directory under os.TempDir
	MaxEdge int    `yaml:"max_edge"`
}

// LogConfig selects the zap configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads an optional YAML file and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.APIBaseURL = NormalizeBaseURL(cfg.APIBaseURL)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NormalizeBaseURL trims whitespace and a trailing slash so paths can be appended.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// Validate checks ranges and the base URL shape.
func Validate(cfg *Config) error {
	if cfg.HealthTimeout < 0 || cfg.RequestTimeout < 0 || cfg.ShutdownTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if cfg.Preview.MaxEdge <= 0 {
		return errors.New("preview.max_edge must be positive")
	}
	if cfg.APIBaseURL == "" {
		return nil
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return fmt.Errorf("api_base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("api_base_url: missing host")
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getEnv("API_BASE_URL", c.APIBaseURL)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Preview.Dir = getEnv("PREVIEW_DIR", c.Preview.Dir)
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Preview.MaxEdge == 0 {
		c.Preview.MaxEdge = DefaultPreviewMaxEdge
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
