package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const (
	subsystem = "Config"

	appDirName     = "mcpcore"
	configFileName = "mcp.json"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/mcpcore/mcp.json, or the
// platform equivalent.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(dir, appDirName, configFileName), nil
}

// Source provides the configured servers. The Store satisfies it; tests
// substitute static lists.
type Source interface {
	LoadAll() ([]api.ServerConfig, error)
}

// Store reads and writes the server file. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
}

// NewStore returns a store for path. An empty path selects
// DefaultConfigPath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// Path returns the file the store operates on.
func (s *Store) Path() string {
	return s.path
}

// LoadAll parses and validates the server file. A missing file is an empty
// configuration.
func (s *Store) LoadAll() ([]api.ServerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug(subsystem, "No server file at %s, using an empty configuration", s.path)
			return []api.ServerConfig{}, nil
		}
		return nil, api.NewConfigError("", fmt.Sprintf("failed to read %s", s.path), err)
	}

	servers, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logging.Debug(subsystem, "Loaded %d server(s) from %s", len(servers), s.path)
	return servers, nil
}

// SaveAll validates servers and replaces the file.
func (s *Store) SaveAll(servers []api.ServerConfig) error {
	if err := ValidateServers(servers); err != nil {
		return err
	}
	if servers == nil {
		servers = []api.ServerConfig{}
	}

	var (
		data []byte
		err  error
	)
	if isYAMLPath(s.path) {
		data, err = yaml.Marshal(servers)
	} else {
		data, err = json.MarshalIndent(servers, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return api.NewConfigError("", "failed to encode servers", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(data)
}

// LoadRaw returns the file content unparsed. A missing file reads as an
// empty JSON array.
func (s *Store) LoadRaw() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "[]", nil
		}
		return "", api.NewConfigError("", fmt.Sprintf("failed to read %s", s.path), err)
	}
	return string(data), nil
}

// SaveRaw writes content verbatim after checking that it parses and
// validates.
func (s *Store) SaveRaw(content string) error {
	if _, err := Parse([]byte(content)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write([]byte(content))
}

// write replaces the file through a temporary sibling and a rename.
func (s *Store) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return api.NewConfigError("", fmt.Sprintf("failed to create %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return api.NewConfigError("", "failed to create temporary file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return api.NewConfigError("", "failed to write temporary file", err)
	}
	if err := tmp.Close(); err != nil {
		return api.NewConfigError("", "failed to write temporary file", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return api.NewConfigError("", "failed to set permissions", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return api.NewConfigError("", fmt.Sprintf("failed to replace %s", s.path), err)
	}

	logging.Info(subsystem, "Saved server configuration to %s", s.path)
	return nil
}

// Parse decodes a JSON or YAML server list and validates it. Unknown fields
// are rejected so typos surface early.
func Parse(data []byte) ([]api.ServerConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []api.ServerConfig{}, nil
	}

	var servers []api.ServerConfig
	if err := yaml.UnmarshalStrict(data, &servers); err != nil {
		return nil, api.NewConfigError("", "failed to parse server configuration", err)
	}
	if servers == nil {
		servers = []api.ServerConfig{}
	}
	if err := ValidateServers(servers); err != nil {
		return nil, err
	}
	return servers, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
