package console

import (
	"context"
	"sort"
	"time"

	"github.com/chzyer/readline"
)

// completer offers command names, server ids for server commands and
// qualified tool names for call.
func (c *Console) completer() *readline.PrefixCompleter {
	servers := readline.PcItemDynamic(func(string) []string { return c.serverIDs() })
	tools := readline.PcItemDynamic(func(string) []string { return c.toolNames() })

	items := make([]readline.PrefixCompleterInterface, 0, len(c.commands))
	for _, name := range c.commandNames() {
		switch name {
		case "status", "start", "stop", "restart", "prompt", "read-ui":
			items = append(items, readline.PcItem(name, servers))
		case "call":
			items = append(items, readline.PcItem(name, tools))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

func (c *Console) serverIDs() []string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	servers, err := c.mgr.Servers(ctx)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(servers))
	for _, s := range servers {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	return ids
}

func (c *Console) toolNames() []string {
	entries, err := c.mgr.Tools("")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}
