// Package prompt turns MCP prompt results into text an agent can use as a
// system prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/giantswarm/mcpcore/internal/protocol"
)

// ToSystemPrompt renders every message as role-labelled text separated by
// blank lines. System messages are emitted verbatim. Non-text blocks become
// bracketed placeholders such as "[Image: image/png]".
func ToSystemPrompt(content protocol.PromptContent) string {
	parts := make([]string, 0, len(content.Messages))
	for _, msg := range content.Messages {
		text := TextOrPlaceholder(msg.Content)
		switch msg.Role {
		case protocol.RoleSystem:
			parts = append(parts, text)
		case protocol.RoleUser:
			parts = append(parts, "User: "+text)
		case protocol.RoleAssistant:
			parts = append(parts, "Assistant: "+text)
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// TextOrPlaceholder returns the text of a text block and a short bracketed
// description of anything else.
func TextOrPlaceholder(c protocol.Content) string {
	switch v := c.(type) {
	case protocol.TextContent:
		return v.Text
	case protocol.ImageContent:
		return fmt.Sprintf("[Image: %s]", v.MIMEType)
	case protocol.AudioContent:
		return fmt.Sprintf("[Audio: %s]", v.MIMEType)
	case protocol.EmbeddedResourceContent:
		return fmt.Sprintf("[Resource: %s]", v.Resource.URI)
	case protocol.ResourceLinkContent:
		return fmt.Sprintf("[Resource link: %s]", v.URI)
	case nil:
		return ""
	default:
		return fmt.Sprintf("[%s]", c.Type())
	}
}

// IsApplicable reports whether every required argument of p is present in
// context. Values are not inspected; an empty value still counts.
func IsApplicable(p protocol.Prompt, context map[string]string) bool {
	for _, arg := range p.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := context[arg.Name]; !ok {
			return false
		}
	}
	return true
}

// MissingArguments lists the required arguments of p absent from context,
// in declaration order.
func MissingArguments(p protocol.Prompt, context map[string]string) []string {
	var missing []string
	for _, arg := range p.Arguments {
		if _, ok := context[arg.Name]; arg.Required && !ok {
			missing = append(missing, arg.Name)
		}
	}
	return missing
}

// SubstituteArguments replaces literal {{key}} placeholders in every text
// message in place and returns the same slice.
func SubstituteArguments(messages []protocol.PromptMessage, args map[string]string) []protocol.PromptMessage {
	for i := range messages {
		messages[i].Substitute(args)
	}
	return messages
}

// FromResult builds the adapter input from a prompts/get result.
func FromResult(name string, result *protocol.GetPromptResult) protocol.PromptContent {
	if result == nil {
		return protocol.PromptContent{Name: name}
	}
	return protocol.PromptContent{Name: name, Messages: result.Messages}
}
