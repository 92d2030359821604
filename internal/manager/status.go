package manager

import (
	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/runtime"
)

// Phase is the lifecycle phase of a server.
type Phase string

const (
	PhaseUninitialized Phase = "Uninitialized"
	PhaseStarting      Phase = "Starting"
	PhaseRunning       Phase = "Running"
	PhaseStopping      Phase = "Stopping"
	PhaseStopped       Phase = "Stopped"
	PhaseDisabled      Phase = "Disabled"
	PhaseError         Phase = "Error"
)

// Status is the runtime status of one server. Reason is set for PhaseError.
type Status struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

func (s Status) String() string {
	if s.Phase == PhaseError && s.Reason != "" {
		return string(s.Phase) + ": " + s.Reason
	}
	return string(s.Phase)
}

// IsRunning reports whether the server has a live connection.
func (s Status) IsRunning() bool {
	return s.Phase == PhaseRunning
}

func statusOf(p Phase) Status {
	return Status{Phase: p}
}

func errorStatus(err error) Status {
	return Status{Phase: PhaseError, Reason: err.Error()}
}

// derivedStatus is reported for a configured server without live state.
func derivedStatus(cfg api.ServerConfig) Status {
	switch {
	case !cfg.Enabled:
		return statusOf(PhaseStopped)
	case cfg.AutoStart:
		return statusOf(PhaseStarting)
	default:
		return statusOf(PhaseUninitialized)
	}
}

// ServerInfo is one row of the status surface.
type ServerInfo struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     Phase          `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	ServerType api.ServerType `json:"serverType"`
	Enabled    bool           `json:"enabled"`
	AutoStart  bool           `json:"autoStart"`

	// Command diagnostics, set for local and container servers.
	Command             string         `json:"command,omitempty"`
	CommandAvailable    *bool          `json:"commandAvailable,omitempty"`
	CommandSource       runtime.Source `json:"commandSource,omitempty"`
	CommandResolvedPath string         `json:"commandResolvedPath,omitempty"`

	// Session details, set while Running.
	ProtocolVersion string   `json:"protocolVersion,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	Tools           int      `json:"tools,omitempty"`
}
