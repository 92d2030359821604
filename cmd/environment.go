package cmd

import (
	"context"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/config"
	"github.com/giantswarm/mcpcore/internal/containerizer"
	"github.com/giantswarm/mcpcore/internal/formatting"
	"github.com/giantswarm/mcpcore/internal/manager"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
	"github.com/giantswarm/mcpcore/internal/runtime"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const subsystem = "CLI"

// shutdownTimeout bounds how long a command waits for its servers to stop.
const shutdownTimeout = 30 * time.Second

// environment is everything a command needs to drive the core: settings,
// the config store, the resolver, the shared tool registry and a manager
// built from them.
type environment struct {
	settings  config.Settings
	store     *config.Store
	resolver  *runtime.Resolver
	registry  *registry.Registry
	manager   *manager.Manager
	formatter formatting.Formatter
	format    formatting.OutputFormat
	cmd       *cobra.Command
}

// newEnvironment reads settings from the environment, applies the global
// flags on top and wires the core together.
func newEnvironment(cmd *cobra.Command) (*environment, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		settings.ConfigFile = configFile
	}
	if runtimeRoot != "" {
		settings.RuntimeRoot = runtimeRoot
	}

	format, err := formatting.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}

	store, err := config.NewStore(settings.ConfigFile)
	if err != nil {
		return nil, err
	}

	resolver := runtime.NewResolver(settings.RuntimeRoot)
	reg := registry.New()

	opts := []manager.Option{
		manager.WithRequestTimeout(settings.RequestTimeout),
		manager.WithStopGrace(settings.StopGrace),
		manager.WithClientInfo(protocol.Implementation{Name: "mcpcore", Version: versionString()}),
	}
	if rt, err := containerizer.NewRuntime(settings.ContainerRuntime); err != nil {
		logging.Warn(subsystem, "Container servers are unavailable: %v", err)
	} else {
		opts = append(opts, manager.WithContainerRuntime(rt))
	}

	return &environment{
		settings: settings,
		store:    store,
		resolver: resolver,
		registry: reg,
		manager:  manager.New(store, resolver, reg, opts...),
		formatter: formatting.New(formatting.Options{
			Format:  format,
			Quiet:   quiet,
			NoColor: noColor,
			Writer:  cmd.OutOrStdout(),
		}),
		format: format,
		cmd:    cmd,
	}, nil
}

// Close stops every server the command started.
func (e *environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.manager.Shutdown(ctx); err != nil {
		logging.Warn(subsystem, "Shutdown did not complete: %v", err)
	}
}

// withSpinner runs fn while a spinner is shown on stderr. Quiet mode and
// structured output formats skip the spinner.
func (e *environment) withSpinner(message string, fn func() error) error {
	if quiet || e.format != formatting.FormatTable {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = e.cmd.ErrOrStderr()
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()

	err := fn()
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint("Failed: "+message) + "\n"
	}
	return err
}

// startServer starts id behind a spinner.
func (e *environment) startServer(ctx context.Context, id string) error {
	return e.withSpinner("Starting "+id+"...", func() error {
		return e.manager.StartServer(ctx, id)
	})
}

// serverInfo returns the status entry of one server.
func (e *environment) serverInfo(ctx context.Context, id string) (manager.ServerInfo, error) {
	servers, err := e.manager.Servers(ctx)
	if err != nil {
		return manager.ServerInfo{}, err
	}
	for _, s := range servers {
		if s.ID == id {
			return s, nil
		}
	}
	return manager.ServerInfo{}, api.NewServerNotFoundError(id)
}
