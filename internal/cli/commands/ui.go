package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapchat/internal/cli/config"
	"github.com/leapstack-labs/leapchat/internal/ui"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the chat web UI",
		Long: `Start a local web server with the chat interface.

The UI provides:
- Question box and suggested questions
- Generated SQL with run, edit and save controls
- Result tables and maps
- Live updates across tabs on the same conversation`,
		Example: `  # Start UI on default port
  leapchat ui

  # Start on custom port
  leapchat ui --port 3000

  # Start without auto-opening browser
  leapchat ui --no-browser`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, fmt.Sprintf("Port to serve on (default: %d)", config.DefaultPort))
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload pages when static assets change (dev builds)")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	// Get UI config with defaults
	uiCfg := cmdCtx.Cfg.GetUIConfig()

	// CLI flags override config file
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := uiCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := uiCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	if uiCfg.SessionSecret == config.DefaultSecret {
		cmdCtx.Logger.Warn("using the built-in session secret; set ui.session_secret for shared deployments")
	}

	service, cleanup, err := cmdCtx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	server := ui.NewServer(ui.Config{
		Service:       service,
		Port:          port,
		Watch:         watch,
		SessionSecret: uiCfg.SessionSecret,
		Logger:        cmdCtx.Logger,
	})

	if autoOpen {
		go openBrowser(server.URL())
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting UI server on %s (backend %s)\n", server.URL(), cmdCtx.Backend.BaseURL())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return server.Serve(cmd.Context())
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
