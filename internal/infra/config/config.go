// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig            `yaml:"server"`
	Sources []SourceConfig          `yaml:"sources" validate:"required,min=1,dive"`
	Player  PlayerConfig            `yaml:"player"`
	Filters map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents remote-control server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Token string      `yaml:"token"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// SourceConfig represents a single episode source configuration.
type SourceConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=api file"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings" validate:"required"`
}

// PlayerConfig represents playback configuration.
type PlayerConfig struct {
	Backend        string `yaml:"backend" default:"mpv" validate:"oneof=mpv virtual"`
	MPVPath        string `yaml:"mpv_path" default:"mpv"`
	TickIntervalMs int    `yaml:"tick_interval_ms" default:"1000" validate:"gte=100,lte=10000"`
	Loop           bool   `yaml:"loop"`
	Shuffle        bool   `yaml:"shuffle"`
	ShuffleSeed    uint64 `yaml:"shuffle_seed"`
	LatestCount    int    `yaml:"latest_count" default:"2" validate:"gte=0"`
}

// TickInterval returns the progress tick interval.
func (p PlayerConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	apiURL := os.Getenv("PODCASTR_API_URL")
	apiToken := os.Getenv("PODCASTR_API_TOKEN")
	for i := range c.Sources {
		if c.Sources[i].Type != "api" {
			continue
		}
		if c.Sources[i].Settings == nil {
			c.Sources[i].Settings = map[string]any{}
		}
		if apiURL != "" {
			c.Sources[i].Settings["base_url"] = apiURL
		}
		if apiToken != "" {
			c.Sources[i].Settings["token"] = apiToken
		}
		break
	}
	if v := os.Getenv("PODCASTR_SERVER_TOKEN"); v != "" {
		c.Server.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
