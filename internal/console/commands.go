package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/giantswarm/mcpcore/internal/prompt"
)

type command struct {
	usage       string
	description string
	minArgs     int
	run         func(ctx context.Context, args []string) error
}

func (c *Console) registerCommands() {
	c.commands = map[string]*command{
		"help": {
			usage:       "help",
			description: "Show available commands",
			run:         c.help,
		},
		"list": {
			usage:       "list",
			description: "List configured servers and their status",
			run:         c.list,
		},
		"status": {
			usage:       "status <server>",
			description: "Show the status of one server",
			minArgs:     1,
			run:         c.status,
		},
		"start": {
			usage:       "start <server>",
			description: "Start a server",
			minArgs:     1,
			run: func(ctx context.Context, args []string) error {
				return c.lifecycle(ctx, args[0], c.mgr.StartServer)
			},
		},
		"stop": {
			usage:       "stop <server>",
			description: "Stop a server",
			minArgs:     1,
			run: func(ctx context.Context, args []string) error {
				return c.lifecycle(ctx, args[0], c.mgr.StopServer)
			},
		},
		"restart": {
			usage:       "restart <server>",
			description: "Restart a server",
			minArgs:     1,
			run: func(ctx context.Context, args []string) error {
				return c.lifecycle(ctx, args[0], c.mgr.RestartServer)
			},
		},
		"reload": {
			usage:       "reload",
			description: "Pick up servers added to the configuration",
			run: func(ctx context.Context, _ []string) error {
				return c.mgr.InitializeNonDestructive(ctx)
			},
		},
		"tools": {
			usage:       "tools [glob]",
			description: "List registered tools, optionally filtered by a glob",
			run:         c.tools,
		},
		"call": {
			usage:       "call <tool> [json-arguments]",
			description: "Call a tool by its qualified name",
			minArgs:     1,
			run:         c.call,
		},
		"prompt": {
			usage:       "prompt <server> <name> [key=value ...]",
			description: "Render a prompt as a system prompt",
			minArgs:     2,
			run:         c.prompt,
		},
		"read-ui": {
			usage:       "read-ui <server> <ui://uri>",
			description: "Fetch an interactive UI resource",
			minArgs:     2,
			run:         c.readUI,
		},
		"exit": {
			usage:       "exit",
			description: "Leave the console",
			run:         func(context.Context, []string) error { return errExit },
		},
	}
	c.commands["quit"] = c.commands["exit"]
}

func (c *Console) help(context.Context, []string) error {
	fmt.Fprintln(c.out, "Available commands:")
	for _, name := range c.commandNames() {
		if name == "quit" {
			continue
		}
		cmd := c.commands[name]
		fmt.Fprintf(c.out, "  %-40s %s\n", cmd.usage, cmd.description)
	}
	return nil
}

func (c *Console) list(ctx context.Context, _ []string) error {
	servers, err := c.mgr.Servers(ctx)
	if err != nil {
		return err
	}
	return c.formatter.FormatServers(servers)
}

func (c *Console) status(_ context.Context, args []string) error {
	status, err := c.mgr.ServerStatus(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s\n", args[0], status)
	return nil
}

func (c *Console) lifecycle(ctx context.Context, id string, op func(context.Context, string) error) error {
	if err := op(ctx, id); err != nil {
		return err
	}
	return c.status(ctx, []string{id})
}

func (c *Console) tools(_ context.Context, args []string) error {
	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}
	entries, err := c.mgr.Tools(pattern)
	if err != nil {
		return err
	}
	return c.formatter.FormatTools(entries)
}

func (c *Console) call(ctx context.Context, args []string) error {
	toolArgs, err := ParseToolArguments(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	result, err := c.mgr.CallTool(ctx, args[0], toolArgs)
	if err != nil {
		return err
	}
	return c.formatter.FormatToolResult(result)
}

func (c *Console) prompt(ctx context.Context, args []string) error {
	values, err := ParseKeyValues(args[2:])
	if err != nil {
		return err
	}
	content, err := c.mgr.RenderPrompt(ctx, args[0], args[1], values)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, prompt.ToSystemPrompt(content))
	return nil
}

func (c *Console) readUI(ctx context.Context, args []string) error {
	result, err := c.mgr.FetchUIResource(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return c.formatter.FormatData(result)
}
