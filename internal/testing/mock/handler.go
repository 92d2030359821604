package mock

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// ToolHandler handles mock tool calls with configurable responses
type ToolHandler struct {
	config ToolConfig
}

// NewToolHandler creates a new mock tool handler
func NewToolHandler(config ToolConfig) *ToolHandler {
	return &ToolHandler{config: config}
}

// ErrToolFailed marks a configured error response. The server reports it as
// a tool result with isError set.
type ErrToolFailed struct {
	Message string
}

func (e *ErrToolFailed) Error() string { return e.Message }

// HandleCall processes a tool call and returns the configured response
func (h *ToolHandler) HandleCall(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	mergedArgs := h.mergeWithDefaults(args)

	// Find the first matching response
	var selected *ToolResponse
	for i := range h.config.Responses {
		if h.matchesCondition(h.config.Responses[i].Condition, mergedArgs) {
			selected = &h.config.Responses[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("no response configured for tool %s", h.config.Name)
	}

	if selected.Delay != "" {
		if d, err := time.ParseDuration(selected.Delay); err == nil {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if selected.Error != "" {
		msg, err := render(selected.Error, mergedArgs)
		if err != nil {
			return nil, fmt.Errorf("failed to render error message: %w", err)
		}
		return nil, &ErrToolFailed{Message: fmt.Sprint(msg)}
	}

	rendered, err := render(selected.Response, mergedArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to render response: %w", err)
	}
	return rendered, nil
}

// render walks v and executes every string containing a template action.
func render(v interface{}, data map[string]interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, "{{") {
			return val, nil
		}
		tmpl, err := template.New("response").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(val)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, err
		}
		return buf.String(), nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			r, err := render(item, data)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			r, err := render(item, data)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// mergeWithDefaults merges provided args with default values from input schema
func (h *ToolHandler) mergeWithDefaults(args map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})

	if properties, ok := h.config.InputSchema["properties"].(map[string]interface{}); ok {
		for propName, propDef := range properties {
			if propDefMap, ok := propDef.(map[string]interface{}); ok {
				if defaultValue, hasDefault := propDefMap["default"]; hasDefault {
					merged[propName] = defaultValue
				}
			}
		}
	}

	for key, value := range args {
		merged[key] = value
	}
	return merged
}

// matchesCondition checks if the given args match the response condition
func (h *ToolHandler) matchesCondition(condition map[string]interface{}, args map[string]interface{}) bool {
	for key, expectedValue := range condition {
		actualValue, exists := args[key]
		if !exists || !valuesEqual(expectedValue, actualValue) {
			return false
		}
	}
	return true
}

// valuesEqual compares loosely so YAML ints match JSON float64 arguments.
func valuesEqual(expected, actual interface{}) bool {
	if reflect.DeepEqual(expected, actual) {
		return true
	}
	return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
}
