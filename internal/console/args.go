package console

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseToolArguments decodes a JSON object of tool arguments. Empty input
// means no arguments.
func ParseToolArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("tool arguments must be a JSON object: %w", err)
	}
	return args, nil
}

// ParseKeyValues turns key=value pairs into a map. Later keys win.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", pair)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
