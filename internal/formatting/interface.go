// Package formatting renders command output as tables, JSON or YAML.
//
// Every formatter accepts the same typed views (server status, registered
// tools, command capabilities, tool results) so the CLI can switch output
// format with a single flag.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/giantswarm/mcpcore/internal/manager"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
	"github.com/giantswarm/mcpcore/internal/runtime"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat maps a flag value to an OutputFormat. The empty string selects
// the table format.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want table, json or yaml)", s)
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	// Quiet compacts JSON and drops decorative table messages.
	Quiet bool
	// NoColor disables ANSI colors in tables.
	NoColor bool
	// Writer receives the output; nil means stdout.
	Writer io.Writer
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stdout
	}
	return o.Writer
}

// Formatter renders the views the CLI prints.
type Formatter interface {
	FormatServers(servers []manager.ServerInfo) error
	FormatTools(tools []registry.Entry) error
	FormatCapabilities(caps []runtime.CommandCapability) error
	FormatToolResult(result *protocol.CallToolResult) error

	// FormatData renders any other value.
	FormatData(data any) error
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
