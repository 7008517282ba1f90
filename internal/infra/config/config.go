// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Player   PlayerConfig   `yaml:"player"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr           string `yaml:"addr" default:":8080"`
	FrontendURL    string `yaml:"frontend_url" default:"http://127.0.0.1:5173" validate:"url"`
	SSETokenTTLSec int    `yaml:"sse_token_ttl_sec" default:"60" validate:"gte=1,lte=3600"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	// Defaults to <frontend_url>/callback
	RedirectURL string `yaml:"redirect_url" validate:"omitempty,url"`
	// Playback control needs Premium; free accounts can only edit playlists
	AllowFree bool `yaml:"allow_free"`
}

// PlayerConfig represents playback session configuration.
type PlayerConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms" default:"2000" validate:"gte=100,lte=60000"`
	MaxFailures    int `yaml:"max_failures" default:"5" validate:"gte=1,lte=100"`
	CommandBuffer  int `yaml:"command_buffer" default:"32" validate:"gte=1,lte=1024"`
}

// DatabaseConfig represents SQLite configuration.
type DatabaseConfig struct {
	Path          string `yaml:"path" default:"grooves.db" validate:"required"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms" default:"5000" validate:"gte=0"`
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

// Parse parses YAML configuration, applies environment overrides and
// defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("GROOVES_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		c.Server.FrontendURL = v
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

// RedirectURL returns the OAuth redirect URL registered with Spotify.
func (c *Config) RedirectURL() string {
	if c.Spotify.RedirectURL != "" {
		return c.Spotify.RedirectURL
	}
	return strings.TrimRight(c.Server.FrontendURL, "/") + "/callback"
}

// PollInterval returns the player poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Player.PollIntervalMs) * time.Millisecond
}

// SSETokenTTL returns how long an unused SSE token stays valid.
func (c *Config) SSETokenTTL() time.Duration {
	return time.Duration(c.Server.SSETokenTTLSec) * time.Second
}

// BusyTimeout returns the SQLite busy timeout.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeoutMs) * time.Millisecond
}
