package protocol

// ResourcesCapability advertises resource support.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability advertises prompt support.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolsCapability advertises tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability advertises that the server emits log notifications.
type LoggingCapability struct{}

// Capabilities is the feature set one side of a session declares. A nil
// section means the feature is not supported at all.
type Capabilities struct {
	Resources *ResourcesCapability `json:"resources,omitempty"`
	Prompts   *PromptsCapability   `json:"prompts,omitempty"`
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Logging   *LoggingCapability   `json:"logging,omitempty"`
}

// DefaultClientCapabilities is everything the client knows how to consume.
func DefaultClientCapabilities() Capabilities {
	return Capabilities{
		Resources: &ResourcesCapability{Subscribe: true, ListChanged: true},
		Prompts:   &PromptsCapability{ListChanged: true},
		Tools:     &ToolsCapability{ListChanged: true},
		Logging:   &LoggingCapability{},
	}
}

// Negotiate returns the field-wise AND of the client and server declarations:
// a section is present only when both sides declare it, and each flag inside
// is set only when both sides set it.
func Negotiate(client, server Capabilities) Capabilities {
	var out Capabilities
	if client.Resources != nil && server.Resources != nil {
		out.Resources = &ResourcesCapability{
			Subscribe:   client.Resources.Subscribe && server.Resources.Subscribe,
			ListChanged: client.Resources.ListChanged && server.Resources.ListChanged,
		}
	}
	if client.Prompts != nil && server.Prompts != nil {
		out.Prompts = &PromptsCapability{
			ListChanged: client.Prompts.ListChanged && server.Prompts.ListChanged,
		}
	}
	if client.Tools != nil && server.Tools != nil {
		out.Tools = &ToolsCapability{
			ListChanged: client.Tools.ListChanged && server.Tools.ListChanged,
		}
	}
	if client.Logging != nil && server.Logging != nil {
		out.Logging = &LoggingCapability{}
	}
	return out
}

// Capability names used in CapabilityError.
const (
	CapabilityTools     = "tools"
	CapabilityResources = "resources"
	CapabilityPrompts   = "prompts"
	CapabilityLogging   = "logging"
)

// Has reports whether the named capability section is present. Unknown
// names report false.
func (c Capabilities) Has(name string) bool {
	switch name {
	case CapabilityTools:
		return c.Tools != nil
	case CapabilityResources:
		return c.Resources != nil
	case CapabilityPrompts:
		return c.Prompts != nil
	case CapabilityLogging:
		return c.Logging != nil
	}
	return false
}

// Names lists the present sections in a fixed order.
func (c Capabilities) Names() []string {
	var names []string
	for _, n := range []string{CapabilityTools, CapabilityResources, CapabilityPrompts, CapabilityLogging} {
		if c.Has(n) {
			names = append(names, n)
		}
	}
	return names
}

// RequiredCapability maps a method to the capability section gating it.
// Methods that need no capability (initialize, ping) return "".
func RequiredCapability(method string) string {
	switch method {
	case MethodToolsList, MethodToolsCall:
		return CapabilityTools
	case MethodResourcesList, MethodResourcesRead, MethodResourcesTemplatesList:
		return CapabilityResources
	case MethodPromptsList, MethodPromptsGet:
		return CapabilityPrompts
	case MethodLoggingSetLevel:
		return CapabilityLogging
	}
	return ""
}
