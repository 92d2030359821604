package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcpcore/internal/config"
	"github.com/giantswarm/mcpcore/internal/console"
	"github.com/giantswarm/mcpcore/internal/formatting"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

var (
	serveInteractive bool
	serveNoWatch     bool
)

// newServeCmd keeps the configured servers running until interrupted.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start all auto-start servers and keep them running",
		Long: `Starts every enabled auto-start server concurrently; one failing server
does not affect the others. The configuration file is then watched:
servers added to it are started without touching the ones already running
or in error.

With --interactive an operator console is opened where servers can be
listed, started, stopped and restarted and tools called by their qualified
mcp__<server>__<tool> name. Otherwise the command blocks until SIGINT or
SIGTERM. All servers are stopped on exit.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().BoolVarP(&serveInteractive, "interactive", "i", false, "Open the interactive console")
	cmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch the configuration file for changes")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.withSpinner("Starting servers...", func() error {
		return env.manager.InitializeAll(ctx)
	}); err != nil {
		return err
	}

	servers, err := env.manager.Servers(ctx)
	if err != nil {
		return err
	}
	if err := env.formatter.FormatServers(servers); err != nil {
		return err
	}

	if !serveNoWatch {
		watcher := config.NewWatcher(env.store.Path(), config.DefaultDebounce, func() {
			logging.Info(subsystem, "Configuration changed, starting new servers")
			if err := env.manager.InitializeNonDestructive(ctx); err != nil {
				logging.Error(subsystem, err, "Reloading configuration failed")
			}
		})
		if err := watcher.Start(ctx); err != nil {
			logging.Warn(subsystem, "Not watching %s: %v", env.store.Path(), err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	if serveInteractive {
		return console.New(env.manager,
			console.WithOutput(cmd.OutOrStdout()),
			console.WithFormatter(formatting.New(formatting.Options{
				Format:  formatting.FormatTable,
				NoColor: noColor,
				Writer:  cmd.OutOrStdout(),
			})),
		).Run(ctx)
	}

	if !quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), "Serving. Press Ctrl+C to stop.")
	}
	<-ctx.Done()
	logging.Info(subsystem, "Shutting down")
	return nil
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}
