package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
)

// Settings are process wide options read from the environment.
type Settings struct {
	// ConfigFile is the server file; empty selects DefaultConfigPath.
	ConfigFile string `env:"MCPCORE_CONFIG_FILE"`
	// RuntimeRoot is the managed runtime bundle; empty selects
	// DefaultRuntimeRoot.
	RuntimeRoot string `env:"MCPCORE_RUNTIME_ROOT"`
	LogLevel    string `env:"MCPCORE_LOG_LEVEL,default=info"`
	// RequestTimeout applies to server requests without their own deadline.
	RequestTimeout time.Duration `env:"MCPCORE_REQUEST_TIMEOUT,default=60s"`
	// StopGrace is how long a stopping server may take before it is killed.
	StopGrace time.Duration `env:"MCPCORE_STOP_GRACE,default=3s"`
	// ContainerRuntime is the CLI used for container servers.
	ContainerRuntime string `env:"MCPCORE_CONTAINER_RUNTIME,default=docker"`
}

// LoadSettings decodes Settings from the environment and fills in default
// paths. A value that does not parse, such as a malformed duration, is an
// error rather than a silent fallback to the default.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envdecode.StrictDecode(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to read settings from environment: %w", err)
	}
	if err := s.applyDefaults(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyDefaults() error {
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = 60 * time.Second
	}
	if s.StopGrace == 0 {
		s.StopGrace = 3 * time.Second
	}
	if s.ContainerRuntime == "" {
		s.ContainerRuntime = "docker"
	}
	if s.ConfigFile == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		s.ConfigFile = p
	}
	if s.RuntimeRoot == "" {
		p, err := DefaultRuntimeRoot()
		if err != nil {
			return err
		}
		s.RuntimeRoot = p
	}
	return nil
}

// DefaultRuntimeRoot is the managed runtime bundle location under the user
// data directory: $XDG_DATA_HOME/mcpcore/runtimes, falling back to
// ~/.local/share on Unix and the user config directory elsewhere.
func DefaultRuntimeRoot() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDirName, "runtimes"), nil
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Separator == '/' {
		return filepath.Join(home, ".local", "share", appDirName, "runtimes"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine runtime directory: %w", err)
	}
	return filepath.Join(dir, appDirName, "runtimes"), nil
}
