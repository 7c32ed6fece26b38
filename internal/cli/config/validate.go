package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapchat/internal/store"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validOutputs = []string{"auto", "text", "markdown", "json"}
)

// ErrNoBackend is returned by RequireBackend when no backend URL is set.
var ErrNoBackend = errors.New("backend_url is not set\nHint: pass --backend-url, set LEAPCHAT_BACKEND_URL or add backend_url to leapchat.yaml")

// Validate checks if the configuration is valid.
// The backend URL is not required here so that help and config commands work
// without one.
func (c *Config) Validate() error {
	if !oneOf(strings.ToLower(c.LogLevel), validLevels) {
		return fmt.Errorf("invalid log_level %q (want %s)", c.LogLevel, strings.Join(validLevels, ", "))
	}
	if c.OutputFormat != "" && !oneOf(c.OutputFormat, validOutputs) {
		return fmt.Errorf("invalid output %q (want %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout must not be negative")
	}
	if c.Gateway.QuestionsTTL < 0 {
		return fmt.Errorf("gateway.questions_ttl must not be negative")
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port %d is out of range", c.UI.Port)
	}

	switch c.Store.Driver {
	case "", store.DriverMemory:
		if c.Store.MaxConversations < 0 {
			return fmt.Errorf("store.max_conversations must not be negative")
		}
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q (want memory, sqlite or postgres)", c.Store.Driver)
	}
	return nil
}

// RequireBackend checks that a backend URL is configured.
func (c *Config) RequireBackend() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return ErrNoBackend
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
