package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapchat/internal/cli/config"
)

const redacted = "********"

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, leapchat.yaml, .env, environment
variables and flags have been applied. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutBackend(cmd)

			if file := config.GetConfigFileUsed(); file != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", file)
			}

			out, err := marshalConfig(cmdCtx.Cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func marshalConfig(cfg *config.Config) ([]byte, error) {
	c := *cfg
	if c.UI.SessionSecret != "" {
		c.UI.SessionSecret = redacted
	}
	if c.Store.DSN != "" && c.Store.Driver == "postgres" {
		c.Store.DSN = redacted
	}
	out, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}
