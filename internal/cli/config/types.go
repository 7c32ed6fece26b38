// Package config provides configuration management for the LeapChat CLI.
//
// Values are layered from defaults, a leapchat.yaml file, a .env file next to
// it, LEAPCHAT_* environment variables and finally explicitly set flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapchat/internal/gateway"
	"github.com/leapstack-labs/leapchat/internal/store"
)

// GatewayConfig holds backend client settings.
type GatewayConfig struct {
	Timeout      time.Duration `koanf:"timeout" yaml:"timeout"`
	QuestionsTTL time.Duration `koanf:"questions_ttl" yaml:"questions_ttl"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port" yaml:"port"`
	AutoOpen      bool   `koanf:"auto_open" yaml:"auto_open"`
	Watch         bool   `koanf:"watch" yaml:"watch"`
	SessionSecret string `koanf:"session_secret" yaml:"session_secret"`
}

// StoreConfig selects where transcripts live.
type StoreConfig struct {
	Driver           string `koanf:"driver" yaml:"driver"`
	DSN              string `koanf:"dsn" yaml:"dsn"`
	MaxConversations int    `koanf:"max_conversations" yaml:"max_conversations"`
}

// Config holds all CLI configuration options.
type Config struct {
	BackendURL   string        `koanf:"backend_url" yaml:"backend_url"`
	LogLevel     string        `koanf:"log_level" yaml:"log_level"`
	Verbose      bool          `koanf:"verbose" yaml:"verbose"`
	OutputFormat string        `koanf:"output" yaml:"output"`
	Gateway      GatewayConfig `koanf:"gateway" yaml:"gateway"`
	UI           UIConfig      `koanf:"ui" yaml:"ui"`
	Store        StoreConfig   `koanf:"store" yaml:"store"`

	// ProjectRoot is the directory holding the config file, or the working
	// directory when there is none.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPort     = 8765
	DefaultSecret   = "leapchat-dev-secret-change-in-production" //nolint:gosec
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		Gateway: GatewayConfig{
			Timeout:      gateway.DefaultTimeout,
			QuestionsTTL: gateway.DefaultQuestionsTTL,
		},
		UI: UIConfig{
			Port:     DefaultPort,
			AutoOpen: true,
			Watch:    true,
		},
		Store: StoreConfig{
			Driver:           store.DriverMemory,
			MaxConversations: store.DefaultMaxConversations,
		},
	}
}

// defaults flattens Default into koanf keys.
func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"log_level":               d.LogLevel,
		"verbose":                 d.Verbose,
		"output":                  d.OutputFormat,
		"gateway.timeout":         d.Gateway.Timeout,
		"gateway.questions_ttl":   d.Gateway.QuestionsTTL,
		"ui.port":                 d.UI.Port,
		"ui.auto_open":            d.UI.AutoOpen,
		"ui.watch":                d.UI.Watch,
		"store.driver":            d.Store.Driver,
		"store.max_conversations": d.Store.MaxConversations,
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() UIConfig {
	ui := c.UI
	if ui.Port == 0 {
		ui.Port = DefaultPort
	}
	if ui.SessionSecret == "" {
		ui.SessionSecret = DefaultSecret
	}
	return ui
}

// GatewayOptions builds the backend client configuration.
func (c *Config) GatewayOptions() gateway.Config {
	return gateway.Config{
		BaseURL:      c.BackendURL,
		Timeout:      c.Gateway.Timeout,
		QuestionsTTL: c.Gateway.QuestionsTTL,
	}
}

// StoreOptions builds the transcript store configuration.
func (c *Config) StoreOptions() store.Config {
	return store.Config{
		Driver:           c.Store.Driver,
		DSN:              c.Store.DSN,
		MaxConversations: c.Store.MaxConversations,
	}
}
