package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcpcore/internal/manager"
)

var (
	listStart   bool
	statusCheck bool
)

// newListCmd lists configured servers. Without --start it reports derived
// statuses only and launches nothing.
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers and their status",
		Long: `Lists every server in the configuration file with its type, status and
command diagnostics.

By default nothing is launched and servers without live state show a
status derived from their configuration: disabled servers as Stopped,
enabled auto-start servers as Starting and the others as Uninitialized.
With --start every enabled auto-start server is started first so the list
shows live status, capabilities and tool counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			if listStart {
				if err := env.withSpinner("Starting servers...", func() error {
					return env.manager.InitializeAll(ctx)
				}); err != nil {
					return err
				}
			}
			servers, err := env.manager.Servers(ctx)
			if err != nil {
				return err
			}
			return env.formatter.FormatServers(servers)
		},
	}
	cmd.Flags().BoolVar(&listStart, "start", false, "Start auto-start servers before listing")
	return cmd
}

// newStatusCmd shows the status entries of the named servers.
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <server>...",
		Short: "Show the status of one or more servers",
		Long: `Shows the status entry of each named server. With --check the servers are
started concurrently first, which verifies that they launch and complete
the handshake; a server that fails ends up in Error with the reason.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			if statusCheck {
				// Failures are recorded in the status; report them instead
				// of aborting.
				var g errgroup.Group
				for _, id := range args {
					g.Go(func() error {
						_ = env.manager.StartServer(ctx, id)
						return nil
					})
				}
				_ = env.withSpinner("Checking servers...", g.Wait)
			}

			infos := make([]manager.ServerInfo, 0, len(args))
			for _, id := range args {
				info, err := env.serverInfo(ctx, id)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			return env.formatter.FormatServers(infos)
		},
	}
	cmd.Flags().BoolVar(&statusCheck, "check", false, "Start the servers to verify they come up")
	return cmd
}

// newStartCmd starts one server, reports it and stops it again.
func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <server>",
		Short: "Start a server, report its status and stop it",
		Long: `Launches or dials the server, completes the handshake, registers its tools
and prints the resulting status entry. The server is stopped when the
command exits; use 'mcpcore serve' to keep servers running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			startErr := env.startServer(ctx, args[0])
			info, err := env.serverInfo(ctx, args[0])
			if err != nil {
				return err
			}
			if err := env.formatter.FormatServers([]manager.ServerInfo{info}); err != nil {
				return err
			}
			return startErr
		},
	}
}

func init() {
	rootCmd.AddCommand(newListCmd(), newStatusCmd(), newStartCmd())
}
