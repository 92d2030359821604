package config

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/giantswarm/mcpcore/internal/api"
)

// Expand renders templated values of a server definition: args, env
// values, URL and header values. Values without "{{" are left alone.
// Template data exposes the server as .ID, .Name and .Type.
func Expand(cfg api.ServerConfig) (api.ServerConfig, error) {
	data := map[string]string{
		"ID":   cfg.ID,
		"Name": cfg.DisplayName(),
		"Type": string(cfg.Type),
	}
	out := cfg

	if len(cfg.Args) > 0 {
		out.Args = make([]string, len(cfg.Args))
		for i, arg := range cfg.Args {
			v, err := render(fmt.Sprintf("args[%d]", i), arg, data)
			if err != nil {
				return api.ServerConfig{}, api.NewConfigError(cfg.ID, "failed to render template", err)
			}
			out.Args[i] = v
		}
	}

	var err error
	if out.Env, err = renderMap("env", cfg.Env, data); err != nil {
		return api.ServerConfig{}, api.NewConfigError(cfg.ID, "failed to render template", err)
	}
	if out.Headers, err = renderMap("headers", cfg.Headers, data); err != nil {
		return api.ServerConfig{}, api.NewConfigError(cfg.ID, "failed to render template", err)
	}
	if out.URL, err = render("url", cfg.URL, data); err != nil {
		return api.ServerConfig{}, api.NewConfigError(cfg.ID, "failed to render template", err)
	}
	return out, nil
}

func renderMap(field string, in map[string]string, data map[string]string) (map[string]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		r, err := render(fmt.Sprintf("%s[%s]", field, k), v, data)
		if err != nil {
			return nil, err
		}
		out[k] = r
	}
	return out, nil
}

func render(name, value string, data map[string]string) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return buf.String(), nil
}
