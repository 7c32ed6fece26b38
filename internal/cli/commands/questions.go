package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewQuestionsCommand creates the questions command.
func NewQuestionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List suggested questions",
		Long:  `Ask the backend for candidate questions about its data.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			questions, err := cmdCtx.Backend.Questions(cmd.Context())
			if err != nil {
				return fmt.Errorf("generate questions: %w", err)
			}
			return cmdCtx.Renderer.Questions(questions)
		},
	}
}
