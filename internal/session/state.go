package session

import (
	"time"

	"github.com/giantswarm/mcpcore/internal/protocol"
)

// State is the lifecycle state of a Connection.
type State int

const (
	StateDisconnected State = iota
	StateInitializing
	StateReady
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateInitializing:
		return "Initializing"
	case StateReady:
		return "Ready"
	case StateClosed:
		return "Closed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateFailed
}

// Anomaly records a response that matched no pending request.
type Anomaly struct {
	Time   time.Time
	ID     protocol.RequestID
	Reason string
}

// ListKind names a cached listing.
type ListKind string

const (
	ListTools     ListKind = "tools"
	ListResources ListKind = "resources"
	ListPrompts   ListKind = "prompts"
)
