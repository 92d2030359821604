package mock

import "time"

// ServerConfig defines a mock MCP server.
type ServerConfig struct {
	Name      string           `yaml:"name"`
	Version   string           `yaml:"version,omitempty"`
	Tools     []ToolConfig     `yaml:"tools,omitempty"`
	Resources []ResourceConfig `yaml:"resources,omitempty"`
	Prompts   []PromptConfig   `yaml:"prompts,omitempty"`

	// LingerAfterClose keeps a helper process alive this long after its
	// stdin closes, like a server that ignores the graceful stop.
	LingerAfterClose time.Duration `yaml:"linger_after_close,omitempty"`
}

// ToolConfig defines configuration for a mock tool
type ToolConfig struct {
	// Name is the unique identifier for the tool
	Name string `yaml:"name"`
	// Description describes what the tool does
	Description string `yaml:"description"`
	// InputSchema defines the expected input schema (JSON Schema)
	InputSchema map[string]interface{} `yaml:"input_schema"`
	// Responses defines possible responses for this tool
	Responses []ToolResponse `yaml:"responses"`
}

// ToolResponse defines a conditional response for a mock tool
type ToolResponse struct {
	// Condition defines parameter matching for this response (optional)
	// If empty, this response is used as a fallback
	Condition map[string]interface{} `yaml:"condition,omitempty"`
	// Response is the response data to return
	Response interface{} `yaml:"response,omitempty"`
	// Error is returned as a tool result with isError set
	Error string `yaml:"error,omitempty"`
	// Delay simulates response latency (e.g., "2s", "500ms")
	Delay string `yaml:"delay,omitempty"`
}

// ResourceConfig defines a static text resource.
type ResourceConfig struct {
	URI         string `yaml:"uri"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	MIMEType    string `yaml:"mime_type,omitempty"`
	Text        string `yaml:"text"`
}

// PromptConfig defines a prompt with fixed messages. Message text is
// returned with {{arg}} placeholders left in place.
type PromptConfig struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description,omitempty"`
	Arguments   []PromptArgument      `yaml:"arguments,omitempty"`
	Messages    []PromptMessageConfig `yaml:"messages"`
}

// PromptArgument declares one prompt argument.
type PromptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
}

// PromptMessageConfig is one prompt message; Role is "user" or "assistant".
type PromptMessageConfig struct {
	Role string `yaml:"role"`
	Text string `yaml:"text"`
}
