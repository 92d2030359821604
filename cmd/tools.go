package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcpcore/internal/console"
	"github.com/giantswarm/mcpcore/internal/registry"
)

var toolsFilter string

// newToolsCmd lists the tools of one server, or of every auto-start server
// when no id is given.
func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools [server]",
		Short: "List tools by their qualified names",
		Long: `Starts the named server, or every enabled auto-start server when no name is
given, and lists the registered tools as mcp__<server>__<tool>.

--filter takes a glob over the qualified names, for example
'mcp__github__*' or 'mcp__*__{read,write}_*'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			pattern := toolsFilter
			if len(args) == 1 {
				if err := env.startServer(ctx, args[0]); err != nil {
					return err
				}
				if pattern == "" {
					pattern = registry.QualifiedName(args[0], "*")
				}
			} else if err := env.withSpinner("Starting servers...", func() error {
				return env.manager.InitializeAll(ctx)
			}); err != nil {
				return err
			}

			entries, err := env.manager.Tools(pattern)
			if err != nil {
				return err
			}
			return env.formatter.FormatTools(entries)
		},
	}
	cmd.Flags().StringVar(&toolsFilter, "filter", "", "Glob over qualified tool names")
	return cmd
}

// newCallCmd calls one tool of one server.
func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <server> <tool> [json-arguments]",
		Short: "Call a tool on a server",
		Long: `Starts the server and calls the tool by its plain name with the given JSON
object as arguments. A tool that reports an error prints its content and
exits with status 1.

Example:
  mcpcore call files read_file '{"path": "README.md"}'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := console.ParseToolArguments(strings.Join(args[2:], " "))
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
			result, err := env.manager.CallServerTool(ctx, args[0], args[1], toolArgs)
			if err != nil {
				return err
			}
			if err := env.formatter.FormatToolResult(result); err != nil {
				return err
			}
			if result.IsError {
				return errToolFailed
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newToolsCmd(), newCallCmd())
}
