package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/protocol"
)

// ListTools returns every tool the server offers, following cursors. The
// result is cached until the server announces a change.
func (c *Connection) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	return cachedList(ctx, c, ListTools, protocol.MethodToolsList, func(raw json.RawMessage) ([]protocol.Tool, string, error) {
		var page protocol.ListToolsResult
		err := json.Unmarshal(raw, &page)
		return page.Tools, page.NextCursor, err
	})
}

// ListResources returns every resource the server offers.
func (c *Connection) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	return cachedList(ctx, c, ListResources, protocol.MethodResourcesList, func(raw json.RawMessage) ([]protocol.Resource, string, error) {
		var page protocol.ListResourcesResult
		err := json.Unmarshal(raw, &page)
		return page.Resources, page.NextCursor, err
	})
}

// ListPrompts returns every prompt the server offers.
func (c *Connection) ListPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	return cachedList(ctx, c, ListPrompts, protocol.MethodPromptsList, func(raw json.RawMessage) ([]protocol.Prompt, string, error) {
		var page protocol.ListPromptsResult
		err := json.Unmarshal(raw, &page)
		return page.Prompts, page.NextCursor, err
	})
}

// CallTool invokes a tool. A result with IsError set is a tool level
// failure and is returned without error.
func (c *Connection) CallTool(ctx context.Context, name string, args map[string]any) (*protocol.CallToolResult, error) {
	raw, err := c.request(ctx, protocol.MethodToolsCall, protocol.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, api.NewProtocolError("malformed tools/call result", err)
	}
	return &result, nil
}

// ReadResource reads one resource. Content metadata is kept verbatim.
func (c *Connection) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	raw, err := c.request(ctx, protocol.MethodResourcesRead, protocol.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, err
	}
	var result protocol.ReadResourceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, api.NewProtocolError("malformed resources/read result", err)
	}
	return &result, nil
}

// GetPrompt renders a prompt on the server.
func (c *Connection) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	raw, err := c.request(ctx, protocol.MethodPromptsGet, protocol.GetPromptParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var result protocol.GetPromptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, api.NewProtocolError("malformed prompts/get result", err)
	}
	return &result, nil
}

// Ping checks that the server is responsive.
func (c *Connection) Ping(ctx context.Context) error {
	_, err := c.request(ctx, protocol.MethodPing, nil)
	return err
}

func cachedList[T any](ctx context.Context, c *Connection, kind ListKind, method string, page func(json.RawMessage) ([]T, string, error)) ([]T, error) {
	c.mu.Lock()
	if c.state != StateReady {
		err := c.stateErrLocked()
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	v, gen, ok := c.cache.get(kind)
	if ok {
		return slices.Clone(v.([]T)), nil
	}

	items, err := listAll(ctx, c, method, page)
	if err != nil {
		return nil, err
	}
	c.cache.put(kind, gen, items)
	return slices.Clone(items), nil
}

func listAll[T any](ctx context.Context, c *Connection, method string, page func(json.RawMessage) ([]T, string, error)) ([]T, error) {
	all := []T{}
	cursor := ""
	seen := map[string]bool{}
	for {
		var params any
		if cursor != "" {
			params = protocol.PaginatedParams{Cursor: cursor}
		}
		raw, err := c.request(ctx, method, params)
		if err != nil {
			return nil, err
		}
		items, next, err := page(raw)
		if err != nil {
			return nil, api.NewProtocolError(fmt.Sprintf("malformed %s result", method), err)
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		if seen[next] {
			return nil, api.NewProtocolError(fmt.Sprintf("%s returned cursor %q twice", method, next), nil)
		}
		seen[next] = true
		cursor = next
	}
}

// listCache holds complete listings. Each kind has a generation that a
// list_changed notification bumps, so a fetch that raced with a change is
// not stored.
type listCache struct {
	mu      sync.Mutex
	entries map[ListKind]any
	gen     map[ListKind]uint64
}

func (l *listCache) get(kind ListKind) (any, uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.entries[kind]
	return v, l.gen[kind], ok
}

func (l *listCache) put(kind ListKind, gen uint64, v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen[kind] != gen {
		return
	}
	if l.entries == nil {
		l.entries = make(map[ListKind]any)
	}
	l.entries[kind] = v
}

func (l *listCache) invalidate(kind ListKind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == nil {
		l.gen = make(map[ListKind]uint64)
	}
	l.gen[kind]++
	delete(l.entries, kind)
}
