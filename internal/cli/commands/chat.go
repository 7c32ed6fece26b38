package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapchat/internal/tui"
)

// NewChatCommand creates the chat command.
func NewChatCommand() *cobra.Command {
	var (
		conversationID string
		inline         bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Full-screen terminal chat",
		Long: `Open the chat in the terminal. Type a question and press enter; select
generated SQL with ctrl+p/ctrl+n, run it with ctrl+r, edit it with ctrl+e and
save the edit with ctrl+s.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			service, cleanup, err := cmdCtx.OpenService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.Run(cmd.Context(), service.Conversation(conversationID), tui.Options{
				Input:     cmd.InOrStdin(),
				Output:    cmd.OutOrStdout(),
				AltScreen: !inline,
			})
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation ID to resume")
	cmd.Flags().BoolVar(&inline, "inline", false, "Draw below the prompt instead of using the alternate screen")

	return cmd
}
