package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/giantswarm/mcpcore/internal/api"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateServers checks every definition and the uniqueness of ids. The
// result wraps ValidationErrors in an api.ConfigError, or is nil.
func ValidateServers(servers []api.ServerConfig) error {
	var errs ValidationErrors
	seen := make(map[string]int, len(servers))

	for i, s := range servers {
		prefix := fmt.Sprintf("servers[%d]", i)
		if s.ID != "" {
			prefix = fmt.Sprintf("servers[%s]", s.ID)
		}
		validateServer(prefix, s, &errs)

		if s.ID == "" {
			continue
		}
		if first, dup := seen[s.ID]; dup {
			errs.Add(prefix+".id", fmt.Sprintf("duplicates servers[%d]", first), s.ID)
			continue
		}
		seen[s.ID] = i
	}

	if errs.HasErrors() {
		return api.NewConfigError("", "invalid server configuration", errs)
	}
	return nil
}

// ValidateServer checks a single definition.
func ValidateServer(s api.ServerConfig) error {
	var errs ValidationErrors
	validateServer("server", s, &errs)
	if errs.HasErrors() {
		return api.NewConfigError(s.ID, "invalid server configuration", errs)
	}
	return nil
}

func validateServer(prefix string, s api.ServerConfig, errs *ValidationErrors) {
	switch {
	case strings.TrimSpace(s.ID) == "":
		errs.Add(prefix+".id", "is required")
	case strings.ContainsAny(s.ID, " \t\r\n"):
		errs.Add(prefix+".id", "cannot contain whitespace", s.ID)
	case strings.Contains(s.ID, "__"):
		// Tool names are qualified as mcp__<id>__<tool>.
		errs.Add(prefix+".id", "cannot contain a double underscore", s.ID)
	}

	if !s.Type.IsValid() {
		errs.Add(prefix+".serverType", "must be one of: local, container, remote", string(s.Type))
		return
	}

	switch s.Type {
	case api.ServerTypeLocal:
		if strings.TrimSpace(s.Command) == "" {
			errs.Add(prefix+".command", "is required for local servers")
		}
	case api.ServerTypeContainer:
		if strings.TrimSpace(s.Command) == "" && strings.TrimSpace(s.Image) == "" {
			errs.Add(prefix+".image", "either image or command is required for container servers")
		}
	case api.ServerTypeRemote:
		validateURL(prefix+".url", s.URL, errs)
	}

	if s.Timeout < 0 {
		errs.Add(prefix+".timeout", "must not be negative", s.Timeout)
	}
	for k := range s.Env {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			errs.Add(prefix+".env", "contains an invalid variable name", k)
		}
	}
}

func validateURL(field, raw string, errs *ValidationErrors) {
	if strings.TrimSpace(raw) == "" {
		errs.Add(field, "is required for remote servers")
		return
	}
	if strings.Contains(raw, "{{") {
		// Rendered at launch time.
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		errs.Add(field, fmt.Sprintf("is not a valid URL: %v", err), raw)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add(field, "must use http or https", raw)
	}
	if u.Host == "" {
		errs.Add(field, "must include a host", raw)
	}
}
