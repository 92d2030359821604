package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"
)

// Server is a mock MCP server backed by mcp-go.
type Server struct {
	config       ServerConfig
	toolHandlers map[string]*ToolHandler
	mcpServer    *server.MCPServer
}

// ParseConfig decodes a YAML server definition.
func ParseConfig(data []byte) (ServerConfig, error) {
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to parse mock config: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	return cfg, nil
}

// NewServer registers every configured tool, resource and prompt.
func NewServer(cfg ServerConfig) *Server {
	version := cfg.Version
	if version == "" {
		version = "1.0.0"
	}

	opts := []server.ServerOption{}
	if len(cfg.Tools) > 0 {
		opts = append(opts, server.WithToolCapabilities(true))
	}
	if len(cfg.Resources) > 0 {
		opts = append(opts, server.WithResourceCapabilities(false, true))
	}
	if len(cfg.Prompts) > 0 {
		opts = append(opts, server.WithPromptCapabilities(true))
	}

	s := &Server{
		config:       cfg,
		toolHandlers: make(map[string]*ToolHandler),
		mcpServer:    server.NewMCPServer(fmt.Sprintf("mock-%s", cfg.Name), version, opts...),
	}

	for _, toolConfig := range cfg.Tools {
		s.toolHandlers[toolConfig.Name] = NewToolHandler(toolConfig)
		tool := mcp.NewTool(toolConfig.Name, mcp.WithDescription(toolConfig.Description))
		s.mcpServer.AddTool(tool, s.createToolHandler(toolConfig.Name))
	}
	for _, rc := range cfg.Resources {
		s.addResource(rc)
	}
	for _, pc := range cfg.Prompts {
		s.addPrompt(pc)
	}
	return s
}

// MCPServer exposes the underlying server, e.g. to add tools at runtime.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.config.Name
}

func (s *Server) createToolHandler(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		handler, exists := s.toolHandlers[toolName]
		if !exists {
			return mcp.NewToolResultError(fmt.Sprintf("tool %s not found", toolName)), nil
		}

		result, err := handler.HandleCall(ctx, request.GetArguments())
		if err != nil {
			var failed *ErrToolFailed
			if errors.As(err, &failed) {
				return mcp.NewToolResultError(failed.Message), nil
			}
			return nil, err
		}

		switch result.(type) {
		case nil:
			return mcp.NewToolResultText(""), nil
		case map[string]interface{}, []interface{}:
			if jsonBytes, err := json.Marshal(result); err == nil {
				return mcp.NewToolResultText(string(jsonBytes)), nil
			}
		}
		return mcp.NewToolResultText(fmt.Sprintf("%v", result)), nil
	}
}

func (s *Server) addResource(rc ResourceConfig) {
	opts := []mcp.ResourceOption{}
	if rc.Description != "" {
		opts = append(opts, mcp.WithResourceDescription(rc.Description))
	}
	if rc.MIMEType != "" {
		opts = append(opts, mcp.WithMIMEType(rc.MIMEType))
	}
	resource := mcp.NewResource(rc.URI, rc.Name, opts...)
	s.mcpServer.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      rc.URI,
				MIMEType: rc.MIMEType,
				Text:     rc.Text,
			},
		}, nil
	})
}

func (s *Server) addPrompt(pc PromptConfig) {
	opts := []mcp.PromptOption{}
	if pc.Description != "" {
		opts = append(opts, mcp.WithPromptDescription(pc.Description))
	}
	for _, arg := range pc.Arguments {
		argOpts := []mcp.ArgumentOption{}
		if arg.Description != "" {
			argOpts = append(argOpts, mcp.ArgumentDescription(arg.Description))
		}
		if arg.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
	}

	s.mcpServer.AddPrompt(mcp.NewPrompt(pc.Name, opts...), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		for _, arg := range pc.Arguments {
			if _, ok := request.Params.Arguments[arg.Name]; arg.Required && !ok {
				return nil, fmt.Errorf("missing required argument %q", arg.Name)
			}
		}
		messages := make([]mcp.PromptMessage, 0, len(pc.Messages))
		for _, m := range pc.Messages {
			role := mcp.RoleUser
			if strings.EqualFold(m.Role, "assistant") {
				role = mcp.RoleAssistant
			}
			messages = append(messages, mcp.NewPromptMessage(role, mcp.NewTextContent(m.Text)))
		}
		return mcp.NewGetPromptResult(pc.Description, messages), nil
	})
}

// ServeStdio speaks newline-delimited JSON-RPC on r and w until ctx is done
// or r is closed.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, r, w)
}
