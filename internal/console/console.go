// Package console is an interactive operator console over a running
// manager. It reads commands with line editing, history and tab completion
// and prints results through the formatting package.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/giantswarm/mcpcore/internal/formatting"
	"github.com/giantswarm/mcpcore/internal/manager"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const subsystem = "Console"

// commandExecutionTimeout bounds a single console command, long enough for
// slow tool calls.
const commandExecutionTimeout = 5 * time.Minute

const promptText = "mcpcore> "

// errExit ends the read loop.
var errExit = errors.New("exit")

// Console dispatches console commands to a manager.
type Console struct {
	mgr         *manager.Manager
	out         io.Writer
	formatter   formatting.Formatter
	historyFile string
	commands    map[string]*command
}

// Option configures a Console.
type Option func(*Console)

// WithOutput sets where command output goes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Console) { c.out = w }
}

// WithFormatter sets the formatter used for listings. Defaults to tables
// written to the console output.
func WithFormatter(f formatting.Formatter) Option {
	return func(c *Console) { c.formatter = f }
}

// WithHistoryFile sets the readline history file. Empty disables history.
func WithHistoryFile(path string) Option {
	return func(c *Console) { c.historyFile = path }
}

// New creates a console for mgr.
func New(mgr *manager.Manager, opts ...Option) *Console {
	c := &Console{
		mgr:         mgr,
		out:         os.Stdout,
		historyFile: filepath.Join(os.TempDir(), ".mcpcore_console_history"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.formatter == nil {
		c.formatter = formatting.New(formatting.Options{Format: formatting.FormatTable, Writer: c.out})
	}
	c.registerCommands()
	return c
}

// Execute parses and runs one command line.
func (c *Console) Execute(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(parts[0])
	if name == "?" {
		name = "help"
	}
	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
	}
	args := parts[1:]
	if len(args) < cmd.minArgs {
		return fmt.Errorf("usage: %s", cmd.usage)
	}

	ctx, cancel := context.WithTimeout(ctx, commandExecutionTimeout)
	defer cancel()
	return cmd.run(ctx, args)
}

// Run reads and executes commands until ctx is done, input ends or the exit
// command is given.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptText,
		HistoryFile:       c.historyFile,
		AutoComplete:      c.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	// Readline blocks; closing it unblocks the loop on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = rl.Close() })
	defer stop()

	fmt.Fprintln(c.out, "Type 'help' for available commands. Use TAB for completion.")
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		err = c.Execute(ctx, strings.TrimSpace(line))
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			logging.Debug(subsystem, "Command %q failed: %v", line, err)
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

func (c *Console) commandNames() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
