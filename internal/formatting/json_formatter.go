package formatting

import (
	"fmt"

	"github.com/giantswarm/mcpcore/internal/manager"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
	"github.com/giantswarm/mcpcore/internal/runtime"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) *JSONFormatter {
	return &JSONFormatter{options: options}
}

func (f *JSONFormatter) FormatServers(servers []manager.ServerInfo) error {
	return f.FormatData(nonNil(servers))
}

func (f *JSONFormatter) FormatTools(tools []registry.Entry) error {
	return f.FormatData(nonNil(tools))
}

func (f *JSONFormatter) FormatCapabilities(caps []runtime.CommandCapability) error {
	return f.FormatData(nonNil(caps))
}

func (f *JSONFormatter) FormatToolResult(result *protocol.CallToolResult) error {
	return f.FormatData(result)
}

// FormatData writes data as JSON, indented unless Quiet is set.
func (f *JSONFormatter) FormatData(data any) error {
	b, err := marshalJSON(data, !f.options.Quiet)
	if err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	_, err = fmt.Fprintln(f.options.writer(), string(b))
	return err
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
