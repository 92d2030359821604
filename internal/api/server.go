package api

import "strings"

// ServerType defines how an MCP server is reached.
type ServerType string

const (
	// ServerTypeLocal launches a local process and talks to it over stdio.
	ServerTypeLocal ServerType = "local"
	// ServerTypeContainer launches the server inside a container runtime and
	// talks to it over the container's attached stdio.
	ServerTypeContainer ServerType = "container"
	// ServerTypeRemote dials an HTTP endpoint speaking MCP streamable HTTP.
	ServerTypeRemote ServerType = "remote"
)

// UnmarshalText accepts the canonical lower case names as well as the
// capitalised forms ("Local", "Container", "Remote") written by older tools.
func (t *ServerType) UnmarshalText(text []byte) error {
	*t = ServerType(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// IsValid reports whether t is one of the known server types.
func (t ServerType) IsValid() bool {
	switch t {
	case ServerTypeLocal, ServerTypeContainer, ServerTypeRemote:
		return true
	}
	return false
}

// IsProcess reports whether servers of this type are launched as a local
// process (directly or through a container runtime).
func (t ServerType) IsProcess() bool {
	return t == ServerTypeLocal || t == ServerTypeContainer
}

// ServerConfig is a single configured MCP server as persisted by the config
// store. The core treats it as read-only.
type ServerConfig struct {
	// ID uniquely and stably identifies the server.
	ID string `json:"id" jsonschema:"required,minLength=1"`
	// Name is the human readable display name.
	Name string `json:"name,omitempty"`
	// Type selects the transport.
	Type ServerType `json:"serverType" jsonschema:"required,enum=local,enum=container,enum=remote"`

	// Command, Args and Env describe the launch of local and container servers.
	// For container servers Command names the container runtime CLI
	// (docker or podman) unless Image is set.
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// Image is a shorthand for container servers: when set, the launch
	// command is derived from the configured container runtime.
	Image string `json:"image,omitempty"`

	// URL and Headers describe a remote server endpoint.
	URL     string            `json:"url,omitempty" jsonschema:"format=uri"`
	Headers map[string]string `json:"headers,omitempty"`

	Enabled   bool `json:"enabled"`
	AutoStart bool `json:"autoStart"`

	// Timeout is the default per-request timeout in seconds. Zero selects
	// the process wide default.
	Timeout int `json:"timeout,omitempty" jsonschema:"minimum=0"`
}

// DisplayName returns Name, falling back to ID.
func (c ServerConfig) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
