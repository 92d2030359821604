package formatting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/giantswarm/mcpcore/internal/manager"
	"github.com/giantswarm/mcpcore/internal/prompt"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
	"github.com/giantswarm/mcpcore/internal/runtime"
)

const maxDescriptionWidth = 60

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) *TableFormatter {
	return &TableFormatter{options: options}
}

// FormatServers renders one row per configured server.
func (f *TableFormatter) FormatServers(servers []manager.ServerInfo) error {
	if len(servers) == 0 {
		return f.formatEmptyMessage("No servers configured")
	}

	t := f.createTable()
	t.AppendHeader(f.header("ID", "NAME", "TYPE", "STATUS", "ENABLED", "AUTOSTART", "TOOLS", "COMMAND"))
	for _, s := range servers {
		t.AppendRow(table.Row{
			s.ID,
			s.Name,
			string(s.ServerType),
			f.formatStatus(s.Status, s.Reason),
			f.formatBool(s.Enabled),
			f.formatBool(s.AutoStart),
			s.Tools,
			f.formatCommand(s),
		})
	}
	t.Render()
	return nil
}

// FormatTools renders registered tools by qualified name.
func (f *TableFormatter) FormatTools(tools []registry.Entry) error {
	if len(tools) == 0 {
		return f.formatEmptyMessage("No tools found")
	}

	t := f.createTable()
	t.AppendHeader(f.header("NAME", "SERVER", "DESCRIPTION"))
	for _, e := range tools {
		desc := e.Tool.Description
		if desc == "" {
			desc = e.Tool.Title
		}
		t.AppendRow(table.Row{e.Name, e.ServerID, truncate(firstLine(desc), maxDescriptionWidth)})
	}
	t.Render()
	return nil
}

// FormatCapabilities renders a command capability snapshot.
func (f *TableFormatter) FormatCapabilities(caps []runtime.CommandCapability) error {
	if len(caps) == 0 {
		return f.formatEmptyMessage("No commands checked")
	}

	t := f.createTable()
	t.AppendHeader(f.header("COMMAND", "AVAILABLE", "SOURCE", "PATH"))
	for _, c := range caps {
		t.AppendRow(table.Row{c.Command, f.formatBool(c.Available), string(c.Source), c.ResolvedPath})
	}
	t.Render()
	return nil
}

// FormatToolResult prints the textual content of a tool result. Non-text
// blocks are shown as placeholders.
func (f *TableFormatter) FormatToolResult(result *protocol.CallToolResult) error {
	w := f.options.writer()
	if result == nil {
		return nil
	}
	if result.IsError {
		fmt.Fprintln(w, f.color(text.FgRed, "Tool reported an error:"))
	}
	for _, c := range result.Content {
		fmt.Fprintln(w, prompt.TextOrPlaceholder(c))
	}
	if len(result.StructuredContent) > 0 && !f.options.Quiet {
		fmt.Fprintln(w, f.color(text.Faint, "Structured content:"))
		fmt.Fprintln(w, PrettyJSON(result.StructuredContent))
	}
	return nil
}

// FormatData renders maps as key/value tables and anything else as
// indented JSON.
func (f *TableFormatter) FormatData(data any) error {
	switch d := data.(type) {
	case string:
		_, err := fmt.Fprintln(f.options.writer(), d)
		return err
	case map[string]any:
		return f.formatObjectData(d)
	case map[string]string:
		obj := make(map[string]any, len(d))
		for k, v := range d {
			obj[k] = v
		}
		return f.formatObjectData(obj)
	default:
		_, err := fmt.Fprintln(f.options.writer(), PrettyJSON(d))
		return err
	}
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	if f.options.NoColor {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = f.color(text.FgHiCyan, n)
	}
	return row
}

func (f *TableFormatter) formatEmptyMessage(message string) error {
	if f.options.Quiet {
		return nil
	}
	_, err := fmt.Fprintln(f.options.writer(), f.color(text.FgYellow, message))
	return err
}

// formatObjectData formats object data as key-value pairs
func (f *TableFormatter) formatObjectData(data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := f.createTable()
	t.AppendHeader(f.header("KEY", "VALUE"))
	for _, k := range keys {
		var value string
		switch v := data[k].(type) {
		case string:
			value = v
		case map[string]any, []any:
			value = PrettyJSON(v)
		default:
			value = fmt.Sprintf("%v", v)
		}
		t.AppendRow(table.Row{k, value})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) formatStatus(phase manager.Phase, reason string) string {
	s := string(phase)
	var c text.Color
	switch phase {
	case manager.PhaseRunning:
		c = text.FgGreen
	case manager.PhaseError:
		c = text.FgRed
		if reason != "" {
			s += ": " + truncate(firstLine(reason), maxDescriptionWidth)
		}
	case manager.PhaseStarting, manager.PhaseStopping:
		c = text.FgYellow
	default:
		c = text.Faint
	}
	return f.color(c, s)
}

func (f *TableFormatter) formatBool(b bool) string {
	if b {
		return f.color(text.FgGreen, "yes")
	}
	return f.color(text.Faint, "no")
}

// formatCommand shows the launch command and where it resolves from.
func (f *TableFormatter) formatCommand(s manager.ServerInfo) string {
	if s.Command == "" {
		return ""
	}
	if s.CommandAvailable != nil && !*s.CommandAvailable {
		return f.color(text.FgRed, s.Command+" (not found)")
	}
	if s.CommandSource != "" {
		return fmt.Sprintf("%s (%s)", s.Command, s.CommandSource)
	}
	return s.Command
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if f.options.NoColor {
		return s
	}
	return c.Sprint(s)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
