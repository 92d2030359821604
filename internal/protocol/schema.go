package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Implementation names a client or server and its version.
type Implementation struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

// InitializeParams is sent by the client to open a session.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ClientInfo      Implementation `json:"clientInfo"`
}

// InitializeResult is the server's answer to initialize.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

// Role is the author of a prompt message or the audience of an annotation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Annotations are client hints attached to resources and content blocks.
type Annotations struct {
	Audience     []Role   `json:"audience,omitempty"`
	Priority     *float64 `json:"priority,omitempty"`
	LastModified string   `json:"lastModified,omitempty"`
}

// Icon is a display icon. Sizes is either a string or an array of strings
// depending on the server, so it is kept raw.
type Icon struct {
	Src      string          `json:"src"`
	MIMEType string          `json:"mimeType,omitempty"`
	Sizes    json.RawMessage `json:"sizes,omitempty"`
}

// PaginatedParams carries the cursor of list requests.
type PaginatedParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ToolAnnotations are behaviour hints. They come from the server and must
// be treated as untrusted.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    *bool  `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool  `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
}

// ToolUIMeta links a tool to an interactive UI resource.
type ToolUIMeta struct {
	ResourceURI string `json:"resourceUri,omitempty"`
}

// ToolMeta is the _meta object of a tool.
type ToolMeta struct {
	UI *ToolUIMeta `json:"ui,omitempty"`
}

// Tool describes a callable tool.
type Tool struct {
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Description  string           `json:"description,omitempty"`
	InputSchema  json.RawMessage  `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage  `json:"outputSchema,omitempty"`
	Icons        []Icon           `json:"icons,omitempty"`
	Annotations  *ToolAnnotations `json:"annotations,omitempty"`
	Meta         *ToolMeta        `json:"_meta,omitempty"`
}

// UIResourceURI returns the ui:// resource the tool renders into, if any.
func (t Tool) UIResourceURI() string {
	if t.Meta == nil || t.Meta.UI == nil {
		return ""
	}
	return t.Meta.UI.ResourceURI
}

// ListToolsResult is one page of tools/list.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams are the parameters of tools/call.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallToolResult is the result of tools/call. IsError marks a tool level
// failure reported by the server, as opposed to a protocol error.
// StructuredContent is forwarded verbatim for UI consumers.
type CallToolResult struct {
	Content           ContentList     `json:"content"`
	IsError           bool            `json:"isError,omitempty"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
}

// Resource describes a readable resource.
type Resource struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Icons       []Icon          `json:"icons,omitempty"`
	Size        *int64          `json:"size,omitempty"`
	Annotations *Annotations    `json:"annotations,omitempty"`
	Meta        json.RawMessage `json:"_meta,omitempty"`
}

// ListResourcesResult is one page of resources/list.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ReadResourceParams are the parameters of resources/read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ResourceContent is the body of a read resource. Text holds textual or HTML
// content and Blob base64 encoded binary content. Meta is forwarded verbatim;
// UIMeta offers a typed view of its ui section.
type ResourceContent struct {
	URI         string          `json:"uri"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Text        string          `json:"text,omitempty"`
	Blob        string          `json:"blob,omitempty"`
	Annotations *Annotations    `json:"annotations,omitempty"`
	Meta        json.RawMessage `json:"_meta,omitempty"`
}

// UnmarshalJSON accepts the legacy "content" member in place of "text".
func (r *ResourceContent) UnmarshalJSON(data []byte) error {
	type alias ResourceContent
	var v struct {
		alias
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = ResourceContent(v.alias)
	if r.Text == "" && v.Content != nil {
		r.Text = *v.Content
	}
	return nil
}

// UIResourceCSP lists the origins a UI resource asks to be allowed.
type UIResourceCSP struct {
	ConnectDomains  []string `json:"connectDomains,omitempty"`
	ResourceDomains []string `json:"resourceDomains,omitempty"`
	FrameDomains    []string `json:"frameDomains,omitempty"`
	BaseURIDomains  []string `json:"baseUriDomains,omitempty"`
}

// UIResourcePermissions are the sandbox permissions a UI resource requests.
// Values are opaque.
type UIResourcePermissions struct {
	Camera         json.RawMessage `json:"camera,omitempty"`
	Microphone     json.RawMessage `json:"microphone,omitempty"`
	Geolocation    json.RawMessage `json:"geolocation,omitempty"`
	ClipboardWrite json.RawMessage `json:"clipboardWrite,omitempty"`
}

// UIResourceMeta is the ui section of a resource content _meta object.
type UIResourceMeta struct {
	CSP         *UIResourceCSP         `json:"csp,omitempty"`
	Permissions *UIResourcePermissions `json:"permissions,omitempty"`
}

// UIMeta decodes the ui section of Meta. It returns nil without error when
// there is none. The core never enforces these values.
func (r ResourceContent) UIMeta() (*UIResourceMeta, error) {
	if len(r.Meta) == 0 {
		return nil, nil
	}
	var meta struct {
		UI *UIResourceMeta `json:"ui"`
	}
	if err := json.Unmarshal(r.Meta, &meta); err != nil {
		return nil, fmt.Errorf("invalid resource _meta: %w", err)
	}
	return meta.UI, nil
}

// ReadResourceResult is the result of resources/read.
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// PromptArgument describes an argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt describes a prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Icons       []Icon           `json:"icons,omitempty"`
}

// ListPromptsResult is one page of prompts/list.
type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// GetPromptParams are the parameters of prompts/get.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptMessage is one message of a rendered prompt.
type PromptMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// UnmarshalJSON decodes the content union, accepting legacy plain strings.
func (m *PromptMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c, err := UnmarshalContent(raw.Content, true)
	if err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = c
	return nil
}

// Substitute applies placeholder substitution to the message content.
func (m *PromptMessage) Substitute(args map[string]string) {
	m.Content = SubstitutePlaceholders(m.Content, args)
}

// GetPromptResult is the result of prompts/get.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptContent is a named, rendered prompt ready for adaptation.
type PromptContent struct {
	Name     string          `json:"name"`
	Messages []PromptMessage `json:"messages"`
}

// CancelledParams are the parameters of notifications/cancelled.
type CancelledParams struct {
	RequestID RequestID `json:"requestId"`
	Reason    string    `json:"reason,omitempty"`
}

// LoggingMessageParams are the parameters of notifications/message.
type LoggingMessageParams struct {
	Level  string          `json:"level"`
	Logger string          `json:"logger,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// UIScheme is the URI scheme of interactive UI resources.
const UIScheme = "ui"

// ValidateUIResourceURI checks that uri is a ui://<server>/<path> URI.
func ValidateUIResourceURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid resource uri %q: %w", uri, err)
	}
	if u.Scheme != UIScheme {
		return fmt.Errorf("resource uri %q must use the %s:// scheme", uri, UIScheme)
	}
	if u.Host == "" {
		return fmt.Errorf("resource uri %q has no server component", uri)
	}
	return nil
}
