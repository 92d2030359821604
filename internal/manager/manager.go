package manager

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/config"
	"github.com/giantswarm/mcpcore/internal/containerizer"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
	"github.com/giantswarm/mcpcore/internal/runtime"
	"github.com/giantswarm/mcpcore/internal/session"
	"github.com/giantswarm/mcpcore/internal/transport"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const subsystem = "Manager"

// Option configures a Manager.
type Option func(*Manager)

// WithRequestTimeout sets the request timeout for servers that do not
// configure their own.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.requestTimeout = d
		}
	}
}

// WithStopGrace bounds how long a stopping process may take to exit before
// it is killed.
func WithStopGrace(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.stopGrace = d
		}
	}
}

// WithContainerRuntime sets the runtime used for container servers. Without
// one, container servers are launched from their command and args as is.
func WithContainerRuntime(rt containerizer.ContainerRuntime) Option {
	return func(m *Manager) {
		m.containers = rt
	}
}

// WithClientInfo sets the implementation info sent during the handshake.
func WithClientInfo(info protocol.Implementation) Option {
	return func(m *Manager) {
		m.clientInfo = info
	}
}

// WithHTTPTransportConfig customises remote transports, mainly to inject an
// HTTP client in tests.
func WithHTTPTransportConfig(fn func(*transport.HTTPConfig)) Option {
	return func(m *Manager) {
		m.httpConfig = fn
	}
}

// serverState is the live state of one configured server. The embedded
// lock serialises lifecycle operations on the server; the remaining fields
// are guarded by Manager.mu.
type serverState struct {
	op sync.Mutex

	cfg       api.ServerConfig
	status    Status
	conn      *session.Connection
	container string
	// gen increments on every start so that a stale failure watcher cannot
	// overwrite the status of a newer session.
	gen uint64
}

// Manager supervises the configured servers.
type Manager struct {
	source     config.Source
	resolver   *runtime.Resolver
	registry   *registry.Registry
	containers containerizer.ContainerRuntime

	requestTimeout time.Duration
	stopGrace      time.Duration
	clientInfo     protocol.Implementation
	httpConfig     func(*transport.HTTPConfig)

	mu      sync.RWMutex
	servers map[string]*serverState
}

// New creates a manager. The registry receives the tools of every running
// server; pass the same registry to the components that resolve tool names.
func New(source config.Source, resolver *runtime.Resolver, reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		source:         source,
		resolver:       resolver,
		registry:       reg,
		requestTimeout: session.DefaultRequestTimeout,
		stopGrace:      transport.DefaultStopGrace,
		clientInfo:     protocol.Implementation{Name: "mcpcore", Version: "dev"},
		servers:        make(map[string]*serverState),
	}
	if m.resolver == nil {
		m.resolver = runtime.NewResolver("")
	}
	if m.registry == nil {
		m.registry = registry.New()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the tool registry the manager populates.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// InitializeAll loads the configuration and starts every enabled auto start
// server concurrently. Disabled servers are stopped and marked Disabled,
// servers that left the configuration are stopped and forgotten. Individual
// start failures end up in the server's status; only a configuration error
// is returned.
func (m *Manager) InitializeAll(ctx context.Context) error {
	configs, err := m.sync(ctx, true)
	if err != nil {
		return err
	}

	var g errgroup.Group
	for _, cfg := range configs {
		id := cfg.ID
		if !cfg.Enabled {
			// Stopping a running server takes up to the stop grace.
			g.Go(func() error {
				m.disable(ctx, id)
				return nil
			})
			continue
		}
		if !cfg.AutoStart {
			continue
		}
		g.Go(func() error {
			if err := m.StartServer(ctx, id); err != nil {
				logging.Warn(subsystem, "Server %s failed to start: %v", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// InitializeNonDestructive acts like InitializeAll but only touches servers
// that are still Uninitialized, including ones seen for the first time.
// Running, failed, stopped and disabled servers keep their state, and
// servers removed from the configuration keep running until stopped.
func (m *Manager) InitializeNonDestructive(ctx context.Context) error {
	configs, err := m.sync(ctx, false)
	if err != nil {
		return err
	}

	var g errgroup.Group
	for _, cfg := range configs {
		if m.phase(cfg.ID) != PhaseUninitialized {
			continue
		}
		id := cfg.ID
		if !cfg.Enabled {
			g.Go(func() error {
				m.disable(ctx, id)
				return nil
			})
			continue
		}
		if !cfg.AutoStart {
			continue
		}
		g.Go(func() error {
			if err := m.startIf(ctx, id, PhaseUninitialized); err != nil {
				logging.Warn(subsystem, "Server %s failed to start: %v", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// sync reloads the configuration into the state table. New ids start out
// Uninitialized, known ids get the updated definition. With prune, ids that
// left the configuration are stopped and removed.
func (m *Manager) sync(ctx context.Context, prune bool) ([]api.ServerConfig, error) {
	configs, err := m.source.LoadAll()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(configs))
	m.mu.Lock()
	for _, cfg := range configs {
		seen[cfg.ID] = true
		if st, ok := m.servers[cfg.ID]; ok {
			st.cfg = cfg
			continue
		}
		m.servers[cfg.ID] = &serverState{cfg: cfg, status: statusOf(PhaseUninitialized)}
	}
	var removed []string
	if prune {
		for id := range m.servers {
			if !seen[id] {
				removed = append(removed, id)
			}
		}
	}
	m.mu.Unlock()

	for _, id := range removed {
		if err := m.StopServer(ctx, id); err != nil {
			logging.Warn(subsystem, "Failed to stop removed server %s: %v", id, err)
		}
		m.mu.Lock()
		delete(m.servers, id)
		m.mu.Unlock()
		logging.Info(subsystem, "Server %s removed from configuration", id)
	}

	logging.Debug(subsystem, "Configuration holds %d server(s)", len(configs))
	return configs, nil
}

// disable stops a server if needed and marks it Disabled.
func (m *Manager) disable(ctx context.Context, id string) {
	st, err := m.state(id)
	if err != nil {
		return
	}
	st.op.Lock()
	defer st.op.Unlock()
	if m.phase(id) == PhaseRunning {
		m.stopLocked(ctx, id, st)
	}
	m.setStatus(st, statusOf(PhaseDisabled))
}

// state returns the state of id, loading the configuration when the id has
// not been seen yet.
func (m *Manager) state(id string) (*serverState, error) {
	m.mu.RLock()
	st, ok := m.servers[id]
	m.mu.RUnlock()
	if ok {
		return st, nil
	}

	configs, err := m.source.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg.ID != id {
			continue
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if st, ok := m.servers[id]; ok {
			return st, nil
		}
		st = &serverState{cfg: cfg, status: statusOf(PhaseUninitialized)}
		m.servers[id] = st
		return st, nil
	}
	return nil, api.NewServerNotFoundError(id)
}

func (m *Manager) phase(id string) Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.servers[id]; ok {
		return st.status.Phase
	}
	return PhaseUninitialized
}

func (m *Manager) setStatus(st *serverState, s Status) {
	m.mu.Lock()
	old := st.status
	st.status = s
	id := st.cfg.ID
	m.mu.Unlock()
	if old != s {
		logging.Debug(subsystem, "Server %s: %s -> %s", id, old, s)
	}
}

// ServerStatus returns the status of a configured server.
func (m *Manager) ServerStatus(id string) (Status, error) {
	st, err := m.state(id)
	if err != nil {
		return Status{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return st.status, nil
}

// Connection returns the live connection of id. It reports false unless
// the server is Running.
func (m *Manager) Connection(id string) (*session.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.servers[id]
	if !ok || st.status.Phase != PhaseRunning || st.conn == nil {
		return nil, false
	}
	return st.conn, true
}

// connection returns the live connection of id or a typed error explaining
// why there is none.
func (m *Manager) connection(id string) (*session.Connection, error) {
	if conn, ok := m.Connection(id); ok {
		return conn, nil
	}
	status, err := m.ServerStatus(id)
	if err != nil {
		return nil, err
	}
	return nil, api.NewNotConnectedError(id, status.String())
}

// Servers merges the configuration with the live state. Servers without
// live state report a derived status. Local and container servers carry
// command diagnostics from the resolver.
func (m *Manager) Servers(ctx context.Context) ([]ServerInfo, error) {
	configs, err := m.source.LoadAll()
	if err != nil {
		return nil, err
	}

	infos := make([]ServerInfo, 0, len(configs))
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := ServerInfo{
			ID:         cfg.ID,
			Name:       cfg.DisplayName(),
			ServerType: cfg.Type,
			Enabled:    cfg.Enabled,
			AutoStart:  cfg.AutoStart,
		}

		status := derivedStatus(cfg)
		m.mu.RLock()
		if st, ok := m.servers[cfg.ID]; ok {
			status = st.status
			if st.conn != nil && status.IsRunning() {
				info.ProtocolVersion = st.conn.ProtocolVersion()
				info.Capabilities = st.conn.Capabilities().Names()
			}
		}
		m.mu.RUnlock()
		info.Status = status.Phase
		info.Reason = status.Reason
		if status.IsRunning() {
			entries, _ := m.registry.List(registry.QualifiedName(cfg.ID, "*"))
			info.Tools = len(entries)
		}

		if command := m.launchCommand(cfg); command != "" {
			capability := m.resolver.CommandCapability(command)
			available := capability.Available
			info.Command = command
			info.CommandAvailable = &available
			info.CommandSource = capability.Source
			info.CommandResolvedPath = capability.ResolvedPath
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// launchCommand is the command a local or container server runs, or ""
// for remote servers.
func (m *Manager) launchCommand(cfg api.ServerConfig) string {
	switch cfg.Type {
	case api.ServerTypeLocal:
		return cfg.Command
	case api.ServerTypeContainer:
		if cfg.Command == "" && cfg.Image != "" && m.containers != nil {
			return m.containers.Name()
		}
		return cfg.Command
	}
	return ""
}

// Shutdown stops every running server concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.servers))
	for id, st := range m.servers {
		if st.status.Phase == PhaseRunning || st.status.Phase == PhaseStarting {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	logging.Info(subsystem, "Shutting down %d server(s)", len(ids))
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return m.StopServer(ctx, id)
		})
	}
	return g.Wait()
}
