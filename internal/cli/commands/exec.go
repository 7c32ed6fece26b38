package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Input string
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [SQL]",
		Short: "Run SQL through the backend",
		Long: `Execute a SQL statement with the backend's run_sql endpoint and print the
result. The statement is taken from the arguments, from --input, or from
standard input when it is piped.`,
		Example: `  leapchat exec "SELECT name FROM cities LIMIT 5"
  leapchat exec -i query.sql -o markdown
  echo "SELECT 1" | leapchat exec`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runExec(cmd *cobra.Command, args []string, opts *ExecOptions) error {
	var sql string

	switch {
	case len(args) > 0:
		sql = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sql = string(content)
	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sql = string(content)
	}

	sql = strings.TrimSpace(sql)
	if sql == "" {
		return fmt.Errorf("no SQL given (pass it as an argument, with --input, or on stdin)")
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	return executeSQL(cmd.Context(), cmdCtx, sql)
}
