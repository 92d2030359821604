package formatting

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/mcpcore/internal/manager"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
	"github.com/giantswarm/mcpcore/internal/runtime"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) *YAMLFormatter {
	return &YAMLFormatter{options: options}
}

func (f *YAMLFormatter) FormatServers(servers []manager.ServerInfo) error {
	return f.FormatData(nonNil(servers))
}

func (f *YAMLFormatter) FormatTools(tools []registry.Entry) error {
	return f.FormatData(nonNil(tools))
}

func (f *YAMLFormatter) FormatCapabilities(caps []runtime.CommandCapability) error {
	return f.FormatData(nonNil(caps))
}

func (f *YAMLFormatter) FormatToolResult(result *protocol.CallToolResult) error {
	return f.FormatData(result)
}

// FormatData writes data as YAML. Values go through their JSON encoding
// first so keys match the JSON output and custom marshalers apply.
func (f *YAMLFormatter) FormatData(data any) error {
	out, err := toYAML(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(f.options.writer(), string(out))
	return err
}

func toYAML(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to format YAML: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to format YAML: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to format YAML: %w", err)
	}
	return out, nil
}
