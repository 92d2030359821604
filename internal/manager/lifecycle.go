package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/config"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/session"
	"github.com/giantswarm/mcpcore/internal/transport"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

// ErrServerDisabled is returned when starting a server whose configuration
// is not enabled.
var ErrServerDisabled = errors.New("server is disabled")

// StartServer brings a server to Running. It is a no-op for a server that
// is already Running. On failure the status becomes Error with the reason
// and the error is returned.
func (m *Manager) StartServer(ctx context.Context, id string) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}
	st.op.Lock()
	defer st.op.Unlock()
	return m.startLocked(ctx, id, st)
}

// startIf starts the server only if it is still in phase when the operation
// lock is acquired.
func (m *Manager) startIf(ctx context.Context, id string, phase Phase) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}
	st.op.Lock()
	defer st.op.Unlock()
	if m.phase(id) != phase {
		return nil
	}
	return m.startLocked(ctx, id, st)
}

func (m *Manager) startLocked(ctx context.Context, id string, st *serverState) error {
	if m.phase(id) == PhaseRunning {
		logging.Debug(subsystem, "Server %s is already running", id)
		return nil
	}

	cfg, err := m.refreshConfig(st)
	if err != nil {
		m.setStatus(st, errorStatus(err))
		return err
	}
	if !cfg.Enabled {
		m.setStatus(st, statusOf(PhaseDisabled))
		return fmt.Errorf("%w: %s", ErrServerDisabled, id)
	}

	m.setStatus(st, statusOf(PhaseStarting))
	logging.Info(subsystem, "Starting server %s (%s)", id, cfg.Type)

	conn, container, err := m.connect(ctx, cfg)
	if err != nil {
		logging.Error(subsystem, err, "Server %s failed to start", id)
		m.setStatus(st, errorStatus(err))
		return err
	}

	m.mu.Lock()
	st.gen++
	gen := st.gen
	st.conn = conn
	st.container = container
	st.status = statusOf(PhaseRunning)
	m.mu.Unlock()

	info := conn.ServerInfo()
	logging.Info(subsystem, "Server %s is running (%s %s, protocol %s)", id, info.Name, info.Version, conn.ProtocolVersion())

	m.warm(ctx, id, conn)
	go m.watch(id, st, conn, gen)
	return nil
}

// refreshConfig picks up the current definition of the server.
func (m *Manager) refreshConfig(st *serverState) (api.ServerConfig, error) {
	configs, err := m.source.LoadAll()
	if err != nil {
		return api.ServerConfig{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range configs {
		if cfg.ID == st.cfg.ID {
			st.cfg = cfg
			return cfg, nil
		}
	}
	return api.ServerConfig{}, api.NewServerNotFoundError(st.cfg.ID)
}

// connect launches or dials the server and completes the handshake.
func (m *Manager) connect(ctx context.Context, cfg api.ServerConfig) (*session.Connection, string, error) {
	cfg, err := config.Expand(cfg)
	if err != nil {
		return nil, "", err
	}

	timeout := m.requestTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	var (
		t         transport.Transport
		container string
	)
	switch cfg.Type {
	case api.ServerTypeLocal, api.ServerTypeContainer:
		t, container, err = m.launch(ctx, cfg)
	case api.ServerTypeRemote:
		t, err = m.dial(cfg)
	default:
		err = api.NewConfigError(cfg.ID, fmt.Sprintf("unknown server type %q", cfg.Type), nil)
	}
	if err != nil {
		return nil, "", err
	}

	var conn *session.Connection
	conn = session.New(t,
		session.WithServerID(cfg.ID),
		session.WithRequestTimeout(timeout),
		session.WithClientInfo(m.clientInfo),
		session.WithListChangedHandler(func(kind session.ListKind) {
			// Runs on the reader goroutine, which must stay free to
			// deliver the refresh responses.
			go m.listChanged(cfg.ID, conn, kind)
		}),
	)

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Initialize(initCtx); err != nil {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), m.stopGrace+time.Second)
		defer closeCancel()
		_ = conn.Close(closeCtx)
		m.removeContainer(closeCtx, cfg.ID, container)
		return nil, "", err
	}
	return conn, container, nil
}

// launch spawns a local or container server.
func (m *Manager) launch(ctx context.Context, cfg api.ServerConfig) (transport.Transport, string, error) {
	command, args, env := cfg.Command, cfg.Args, cfg.Env
	var container string

	if cfg.Type == api.ServerTypeContainer && m.containers != nil {
		spec, err := m.containers.LaunchSpec(cfg)
		if err != nil {
			return nil, "", err
		}
		if cfg.Image != "" {
			if err := m.containers.PullImage(ctx, cfg.Image); err != nil {
				return nil, "", api.NewTransportError(cfg.ID, "pull", err)
			}
		}
		command, args, env, container = spec.Command, spec.Args, spec.Env, spec.ContainerName
	}

	resolved, ok := m.resolver.Resolve(command)
	if !ok {
		return nil, "", api.NewTransportError(cfg.ID, "resolve", fmt.Errorf("command %q not found", command))
	}
	logging.Debug(subsystem, "Server %s: resolved %s to %s (%s)", cfg.ID, command, resolved.Command, resolved.Source)

	proc, err := transport.StartProcess(ctx, transport.ProcessConfig{
		ServerID:  cfg.ID,
		Command:   resolved.Command,
		Args:      args,
		Env:       m.processEnv(env),
		StopGrace: m.stopGrace,
	})
	if err != nil {
		return nil, "", err
	}
	return proc, container, nil
}

// processEnv is the current environment with the merged search path and
// the server's own variables on top.
func (m *Manager) processEnv(extra map[string]string) []string {
	base := os.Environ()
	env := make([]string, 0, len(base)+len(extra)+1)
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if strings.EqualFold(k, "PATH") {
			continue
		}
		if _, override := extra[k]; override {
			continue
		}
		env = append(env, kv)
	}

	path := os.Getenv("PATH")
	if p, ok := extra["PATH"]; ok {
		path = p
	}
	env = append(env, "PATH="+m.resolver.MergedPathEnv(path))
	for k, v := range extra {
		if k == "PATH" {
			continue
		}
		env = append(env, k+"="+v)
	}
	return env
}

func (m *Manager) dial(cfg api.ServerConfig) (transport.Transport, error) {
	hc := transport.HTTPConfig{
		ServerID: cfg.ID,
		URL:      cfg.URL,
		Headers:  cfg.Headers,
	}
	if m.httpConfig != nil {
		m.httpConfig(&hc)
	}
	return transport.NewHTTP(hc)
}

// warm fills the listing caches and registers the server's tools. Failures
// are logged; the server stays Running.
func (m *Manager) warm(ctx context.Context, id string, conn *session.Connection) {
	caps := conn.Capabilities()
	if caps.Has(protocol.CapabilityTools) {
		m.refreshTools(ctx, id, conn)
	}
	if caps.Has(protocol.CapabilityResources) {
		if _, err := conn.ListResources(ctx); err != nil {
			logging.Warn(subsystem, "Server %s: listing resources failed: %v", id, err)
		}
	}
	if caps.Has(protocol.CapabilityPrompts) {
		if _, err := conn.ListPrompts(ctx); err != nil {
			logging.Warn(subsystem, "Server %s: listing prompts failed: %v", id, err)
		}
	}
}

func (m *Manager) refreshTools(ctx context.Context, id string, conn *session.Connection) {
	tools, err := conn.ListTools(ctx)
	if err != nil {
		logging.Warn(subsystem, "Server %s: listing tools failed: %v", id, err)
		return
	}
	// A stop may have raced the listing.
	if current, ok := m.Connection(id); !ok || current != conn {
		return
	}
	m.registry.Register(id, tools)
}

func (m *Manager) listChanged(id string, conn *session.Connection, kind session.ListKind) {
	if current, ok := m.Connection(id); !ok || current != conn {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
	defer cancel()

	switch kind {
	case session.ListTools:
		m.refreshTools(ctx, id, conn)
	case session.ListResources:
		_, _ = conn.ListResources(ctx)
	case session.ListPrompts:
		_, _ = conn.ListPrompts(ctx)
	}
}

// watch moves a server to Error when its connection fails on its own, for
// example because the process exited.
func (m *Manager) watch(id string, st *serverState, conn *session.Connection, gen uint64) {
	<-conn.Done()
	if conn.State() != session.StateFailed {
		return
	}

	m.mu.Lock()
	if st.gen != gen || st.conn != conn {
		m.mu.Unlock()
		return
	}
	reason := conn.Err()
	if reason == nil {
		reason = errors.New("connection failed")
	}
	st.conn = nil
	container := st.container
	st.container = ""
	st.status = errorStatus(reason)
	m.mu.Unlock()

	logging.Error(subsystem, reason, "Server %s connection failed", id)
	m.registry.Unregister(id)

	ctx, cancel := context.WithTimeout(context.Background(), m.stopGrace+5*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
	m.removeContainer(ctx, id, container)
}

// StopServer closes the connection of a Running server and marks it
// Stopped. Stopped and Uninitialized servers are left alone; Error and
// Disabled servers become Stopped without I/O.
func (m *Manager) StopServer(ctx context.Context, id string) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}
	st.op.Lock()
	defer st.op.Unlock()

	switch m.phase(id) {
	case PhaseStopped, PhaseUninitialized:
		return nil
	case PhaseRunning:
		m.stopLocked(ctx, id, st)
	default:
		m.setStatus(st, statusOf(PhaseStopped))
	}
	return nil
}

// stopLocked closes the live connection. Close errors are logged; the
// server ends up Stopped regardless.
func (m *Manager) stopLocked(ctx context.Context, id string, st *serverState) {
	m.mu.Lock()
	conn := st.conn
	container := st.container
	st.conn = nil
	st.container = ""
	st.status = statusOf(PhaseStopping)
	m.mu.Unlock()

	logging.Info(subsystem, "Stopping server %s", id)
	m.registry.Unregister(id)

	if conn != nil {
		if err := conn.Close(ctx); err != nil {
			logging.Warn(subsystem, "Error closing connection to %s: %v", id, err)
		}
	}
	m.removeContainer(ctx, id, container)

	m.setStatus(st, statusOf(PhaseStopped))
	logging.Info(subsystem, "Server %s stopped", id)
}

func (m *Manager) removeContainer(ctx context.Context, id, name string) {
	if name == "" || m.containers == nil {
		return
	}
	if err := m.containers.RemoveContainer(ctx, name); err != nil {
		logging.Warn(subsystem, "Server %s: removing container %s failed: %v", id, name, err)
	}
}

// RestartServer stops a Running server and starts it again. For a server
// that is not running it is the same as StartServer.
func (m *Manager) RestartServer(ctx context.Context, id string) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}
	st.op.Lock()
	defer st.op.Unlock()

	logging.Info(subsystem, "Restarting server %s", id)
	if m.phase(id) == PhaseRunning {
		m.stopLocked(ctx, id, st)
	}
	return m.startLocked(ctx, id, st)
}
