package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/giantswarm/mcpcore/internal/api"
)

// Schema returns the JSON schema of the server file.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&[]api.ServerConfig{})
	s.Title = "mcpcore server configuration"
	s.Description = "List of MCP servers managed by mcpcore"
	return json.MarshalIndent(s, "", "  ")
}
