package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapchat/internal/cli/output"
	"github.com/leapstack-labs/leapchat/internal/gateway"
	"github.com/leapstack-labs/leapchat/internal/resultset"
)

// AskOptions holds options for the ask command.
type AskOptions struct {
	Run bool
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Turn a question into SQL",
		Long: `Send a natural-language question to the backend and print the SQL it
generates. With --run the SQL is executed and the result printed as well.`,
		Example: `  # Show the generated SQL
  leapchat ask "How many cities are in North Sumatra?"

  # Generate and run it
  leapchat ask --run "Which districts border Medan?"

  # Machine-readable output
  leapchat ask -o json "Top 5 cities by population"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Run, "run", "r", false, "Execute the generated SQL")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts *AskOptions) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	cmdCtx.Logger.Debug("generating sql", "question", question)
	res, err := cmdCtx.Backend.GenerateSQL(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("generate sql: %w", err)
	}
	if res.Failed {
		return r.BackendError(res.Error)
	}

	if !opts.Run {
		return r.SQL(question, res.SQL)
	}
	if r.EffectiveMode() != output.ModeJSON {
		if err := r.SQL(question, res.SQL); err != nil {
			return err
		}
		r.Println()
	}
	return executeSQL(cmd.Context(), cmdCtx, res.SQL)
}

// executeSQL runs sql through the backend and renders the result.
func executeSQL(ctx context.Context, cmdCtx *CommandContext, sql string) error {
	res, err := cmdCtx.Backend.RunSQL(ctx, sql)
	if err != nil {
		return fmt.Errorf("run sql: %w", err)
	}
	return renderRun(cmdCtx.Renderer, res)
}

func renderRun(r *output.Renderer, res gateway.RunResult) error {
	if res.Failed {
		return r.BackendError(res.Error)
	}
	rs, err := resultset.Decode(res.DF)
	if err != nil {
		return fmt.Errorf("could not read the result: %w", err)
	}
	return r.Result(rs)
}
