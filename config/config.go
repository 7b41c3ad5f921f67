// Package config loads the CloudScope configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	AWS       AWSConfig       `yaml:"aws"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen     string `yaml:"listen" validate:"required"`
	CORSOrigin string `yaml:"cors_origin"`
}

// StoreConfig configures profile persistence.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// CacheConfig configures the resource cache.
type CacheConfig struct {
	Path     string `yaml:"path"`
	TTLDays  int    `yaml:"ttl_days" validate:"gte=0"`
	Disabled bool   `yaml:"disabled"`
}

// AWSConfig configures credential resolution and scanning.
type AWSConfig struct {
	DefaultRegion string `yaml:"default_region" validate:"required"`
	ScanWorkers   int    `yaml:"scan_workers" validate:"gte=1,lte=32"`
}

// TelemetryConfig configures OTLP export. Empty endpoint disables push
// export; the Prometheus endpoint is always served.
type TelemetryConfig struct {
	OTELEndpoint string `yaml:"otel_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		Store:  StoreConfig{Path: "data/profiles.db"},
		Cache:  CacheConfig{Path: "data/resources.db", TTLDays: 7},
		AWS:    AWSConfig{DefaultRegion: "us-east-1", ScanWorkers: 8},
	}
}

// LoadConfig loads configuration from path, applying defaults for
// fields the file omits. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate ensures required fields are present and within bounds.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// CacheTTL converts the configured TTL to a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLDays) * 24 * time.Hour
}
