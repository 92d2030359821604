package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/giantswarm/mcpcore/internal/prompt"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
)

// ErrInvalidUIResource is returned by FetchUIResource for URIs outside the
// ui:// scheme.
var ErrInvalidUIResource = errors.New("invalid UI resource")

// ErrPromptNotFound is returned by RenderPrompt for a name the server does
// not list.
var ErrPromptNotFound = errors.New("prompt not found")

// ErrMissingPromptArguments is returned by RenderPrompt when a required
// argument has no value.
var ErrMissingPromptArguments = errors.New("missing required prompt arguments")

// forwardable are the only methods Forward passes to a server.
var forwardable = map[string]bool{
	protocol.MethodToolsCall:     true,
	protocol.MethodResourcesRead: true,
	protocol.MethodPing:          true,
}

// Forward passes a caller built request to server id and returns the
// server's response with the caller's id. Methods other than tools/call,
// resources/read and ping are answered with MethodNotFound without looking
// at the server. JSON-RPC errors reported by the server come back as error
// responses; a missing connection or a transport failure is returned as an
// error.
func (m *Manager) Forward(ctx context.Context, id string, req *protocol.Request) (*protocol.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if !forwardable[req.Method] {
		return protocol.NewErrorResponse(req.ID, protocol.NewMethodNotFound(req.Method)), nil
	}

	conn, err := m.connection(id)
	if err != nil {
		return nil, err
	}

	result, err := conn.Call(ctx, req.Method, req.Params)
	if err != nil {
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) {
			return protocol.NewErrorResponse(req.ID, rpcErr), nil
		}
		return nil, err
	}
	return &protocol.Response{JSONRPC: protocol.JSONRPCVersion, ID: req.ID, Result: result}, nil
}

// FetchUIResource reads an interactive UI resource. The URI must use the
// ui:// scheme; anything else is rejected before the server is contacted.
// The CSP and permission metadata of the result is returned untouched.
func (m *Manager) FetchUIResource(ctx context.Context, id, uri string) (*protocol.ReadResourceResult, error) {
	if err := protocol.ValidateUIResourceURI(uri); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUIResource, err)
	}
	conn, err := m.connection(id)
	if err != nil {
		return nil, err
	}
	return conn.ReadResource(ctx, uri)
}

// CallTool calls a tool by its qualified mcp__<server>__<tool> name.
func (m *Manager) CallTool(ctx context.Context, qualifiedName string, args map[string]any) (*protocol.CallToolResult, error) {
	entry, err := m.registry.Resolve(qualifiedName)
	if err != nil {
		return nil, err
	}
	conn, err := m.connection(entry.ServerID)
	if err != nil {
		return nil, err
	}
	return conn.CallTool(ctx, entry.Tool.Name, args)
}

// CallServerTool calls a tool of server id by its plain name. Unlike
// CallTool it does not require the tool to be registered, so unknown names
// reach the server and come back as the server's own error.
func (m *Manager) CallServerTool(ctx context.Context, id, tool string, args map[string]any) (*protocol.CallToolResult, error) {
	conn, err := m.connection(id)
	if err != nil {
		return nil, err
	}
	return conn.CallTool(ctx, tool, args)
}

// GetPrompt fetches a prompt from server id.
func (m *Manager) GetPrompt(ctx context.Context, id, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	conn, err := m.connection(id)
	if err != nil {
		return nil, err
	}
	return conn.GetPrompt(ctx, name, args)
}

// ListPrompts lists the prompts of server id.
func (m *Manager) ListPrompts(ctx context.Context, id string) ([]protocol.Prompt, error) {
	conn, err := m.connection(id)
	if err != nil {
		return nil, err
	}
	return conn.ListPrompts(ctx)
}

// RenderPrompt fetches a prompt and prepares it for use as a system prompt.
// Required arguments are checked before the server is asked for the prompt
// and literal {{name}} placeholders are replaced with args afterwards.
func (m *Manager) RenderPrompt(ctx context.Context, id, name string, args map[string]string) (protocol.PromptContent, error) {
	prompts, err := m.ListPrompts(ctx, id)
	if err != nil {
		return protocol.PromptContent{}, err
	}
	var found *protocol.Prompt
	for i := range prompts {
		if prompts[i].Name == name {
			found = &prompts[i]
			break
		}
	}
	if found == nil {
		return protocol.PromptContent{}, fmt.Errorf("%w: %s on server %s", ErrPromptNotFound, name, id)
	}
	if missing := prompt.MissingArguments(*found, args); len(missing) > 0 {
		return protocol.PromptContent{}, fmt.Errorf("%w: %s", ErrMissingPromptArguments, strings.Join(missing, ", "))
	}

	result, err := m.GetPrompt(ctx, id, name, args)
	if err != nil {
		return protocol.PromptContent{}, err
	}
	content := prompt.FromResult(name, result)
	content.Messages = prompt.SubstituteArguments(content.Messages, args)
	return content, nil
}

// Tools lists the registered tools matching a glob over qualified names.
func (m *Manager) Tools(pattern string) ([]registry.Entry, error) {
	return m.registry.List(pattern)
}
