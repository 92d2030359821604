package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcpcore/internal/console"
	"github.com/giantswarm/mcpcore/internal/formatting"
	"github.com/giantswarm/mcpcore/internal/prompt"
)

var promptArgs []string

// newPromptCmd renders a server prompt as system prompt text.
func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt <server> <name>",
		Short: "Render a server prompt as a system prompt",
		Long: `Starts the server, fetches the prompt with the given arguments and prints
it as role-labelled system prompt text. Required arguments must be given
with --arg; literal {{name}} placeholders in the messages are replaced.

Example:
  mcpcore prompt files review --arg path=main.go`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := console.ParseKeyValues(promptArgs)
			if err != nil {
				return err
			}

			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			if err := env.startServer(ctx, args[0]); err != nil {
				return err
			}
			content, err := env.manager.RenderPrompt(ctx, args[0], args[1], values)
			if err != nil {
				return err
			}
			if env.format != formatting.FormatTable {
				return env.formatter.FormatData(content)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt.ToSystemPrompt(content))
			return err
		},
	}
	cmd.Flags().StringArrayVar(&promptArgs, "arg", nil, "Prompt argument as key=value (repeatable)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newPromptCmd())
}
