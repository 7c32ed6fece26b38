package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/cli/config"
	"github.com/leapstack-labs/leapchat/internal/cli/output"
	"github.com/leapstack-labs/leapchat/internal/gateway"
	"github.com/leapstack-labs/leapchat/internal/store"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Backend  *gateway.Client
}

// NewCommandContext creates a CommandContext with a backend client.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutBackend(cmd)
	client, err := createBackend(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	cmdCtx.Backend = client
	return cmdCtx, nil
}

// NewCommandContextWithoutBackend creates a CommandContext for commands that
// never reach the backend.
func NewCommandContextWithoutBackend(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// OpenService opens the transcript store and builds a chat service on it.
// The returned cleanup closes the store.
func (c *CommandContext) OpenService(ctx context.Context) (*chat.Service, func(), error) {
	opts := c.Cfg.StoreOptions()
	opts.Logger = c.Logger
	st, err := store.Open(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open transcript store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			c.Logger.Warn("closing transcript store failed", "error", err)
		}
	}
	return chat.NewService(st, c.Backend, c.Logger), cleanup, nil
}

// getConfig returns the loaded configuration, or the defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func createBackend(cfg *config.Config, logger *slog.Logger) (*gateway.Client, error) {
	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}
	opts := cfg.GatewayOptions()
	opts.Logger = logger
	client, err := gateway.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	return output.IsTerminal(r)
}
