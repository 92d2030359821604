package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const (
	subsystem = "Registry"

	// Prefix starts every qualified tool name.
	Prefix = "mcp"
	// Separator joins the prefix, the server id and the tool name.
	Separator = "__"
)

// ErrToolNotFound is returned when a qualified name has no registered tool.
var ErrToolNotFound = errors.New("tool not found")

// Entry is a registered tool.
type Entry struct {
	// Name is the qualified name.
	Name     string        `json:"name"`
	ServerID string        `json:"serverId"`
	Tool     protocol.Tool `json:"tool"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]map[string]protocol.Tool

	// updateChan carries at most one pending change notification.
	updateChan chan struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		servers:    make(map[string]map[string]protocol.Tool),
		updateChan: make(chan struct{}, 1),
	}
}

// QualifiedName returns mcp__<serverID>__<tool>.
func QualifiedName(serverID, tool string) string {
	return Prefix + Separator + serverID + Separator + tool
}

// ParseQualifiedName splits a qualified name. Server ids never contain the
// separator, so everything after the second separator is the tool name.
func ParseQualifiedName(name string) (serverID, tool string, err error) {
	rest, ok := strings.CutPrefix(name, Prefix+Separator)
	if !ok {
		return "", "", fmt.Errorf("%q is not a qualified tool name", name)
	}
	serverID, tool, ok = strings.Cut(rest, Separator)
	if !ok || serverID == "" || tool == "" {
		return "", "", fmt.Errorf("%q is not a qualified tool name", name)
	}
	return serverID, tool, nil
}

// Register replaces the tools of serverID.
func (r *Registry) Register(serverID string, tools []protocol.Tool) {
	byName := make(map[string]protocol.Tool, len(tools))
	for _, t := range tools {
		if _, dup := byName[t.Name]; dup {
			logging.Warn(subsystem, "Server %s lists tool %s more than once, keeping the first", serverID, t.Name)
			continue
		}
		byName[t.Name] = t
	}

	r.mu.Lock()
	r.servers[serverID] = byName
	r.mu.Unlock()

	logging.Debug(subsystem, "Registered %d tool(s) for %s", len(byName), serverID)
	r.notifyUpdate()
}

// Unregister removes every tool of serverID and reports whether any were
// registered.
func (r *Registry) Unregister(serverID string) bool {
	r.mu.Lock()
	_, ok := r.servers[serverID]
	delete(r.servers, serverID)
	r.mu.Unlock()

	if ok {
		logging.Debug(subsystem, "Unregistered tools of %s", serverID)
		r.notifyUpdate()
	}
	return ok
}

// Resolve returns the entry for a qualified name.
func (r *Registry) Resolve(name string) (Entry, error) {
	serverID, tool, err := ParseQualifiedName(name)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.servers[serverID][tool]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return Entry{Name: name, ServerID: serverID, Tool: t}, nil
}

// List returns the registered tools sorted by qualified name. A non-empty
// pattern is a doublestar glob matched against the qualified name, for
// example "mcp__files__*" or "*__read_*".
func (r *Registry) List(pattern string) ([]Entry, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid filter pattern %q", pattern)
	}

	r.mu.RLock()
	var out []Entry
	for serverID, tools := range r.servers {
		for name, t := range tools {
			q := QualifiedName(serverID, name)
			if pattern != "" {
				if ok, _ := doublestar.Match(pattern, q); !ok {
					continue
				}
			}
			out = append(out, Entry{Name: q, ServerID: serverID, Tool: t})
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Servers returns the ids with registered tools, sorted.
func (r *Registry) Servers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Updates returns a channel that receives a value after the registry
// changed. Notifications coalesce.
func (r *Registry) Updates() <-chan struct{} {
	return r.updateChan
}

func (r *Registry) notifyUpdate() {
	select {
	case r.updateChan <- struct{}{}:
	default:
	}
}
