package containerizer

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const subsystem = "Containerizer"

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// namePrefix marks containers started by this process.
const namePrefix = "mcpcore-"

// CLIRuntime implements ContainerRuntime on top of the docker or podman CLI.
type CLIRuntime struct {
	kind RuntimeType
}

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// NewRuntime returns the runtime for kind. An empty kind selects docker.
// The CLI is not probed here; a missing binary surfaces when a server is
// started.
func NewRuntime(kind string) (*CLIRuntime, error) {
	rt := RuntimeType(strings.ToLower(strings.TrimSpace(kind)))
	switch rt {
	case "":
		rt = RuntimeTypeDocker
	case RuntimeTypeDocker, RuntimeTypePodman:
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", kind)
	}
	return &CLIRuntime{kind: rt}, nil
}

// Name returns the runtime CLI name.
func (r *CLIRuntime) Name() string {
	return string(r.kind)
}

// Available reports whether the runtime daemon answers.
func (r *CLIRuntime) Available(ctx context.Context) error {
	cmd := execCommandContext(ctx, r.Name(), "info")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s daemon not accessible: %w: %s", r.Name(), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// PullImage pulls a container image if not already present
func (r *CLIRuntime) PullImage(ctx context.Context, image string) error {
	checkCmd := execCommandContext(ctx, r.Name(), "image", "inspect", image)
	if err := checkCmd.Run(); err == nil {
		logging.Debug(subsystem, "Image %s already exists", image)
		return nil
	}

	logging.Info(subsystem, "Pulling image %s", image)
	pullCmd := execCommandContext(ctx, r.Name(), "pull", image)
	output, err := pullCmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w: %s", image, err, strings.TrimSpace(string(output)))
	}
	logging.Debug(subsystem, "Pulled %s: %s", image, strings.TrimSpace(string(output)))
	return nil
}

// LaunchSpec builds the attached run command for cfg. Without an image the
// configured command and args are used verbatim, so hand written
// "docker run ..." definitions keep working.
func (r *CLIRuntime) LaunchSpec(cfg api.ServerConfig) (LaunchSpec, error) {
	if cfg.Image == "" {
		if cfg.Command == "" {
			return LaunchSpec{}, api.NewConfigError(cfg.ID, "container server needs an image or a command", nil)
		}
		return LaunchSpec{Command: cfg.Command, Args: cfg.Args, Env: cfg.Env}, nil
	}

	name := ContainerName(cfg.ID)
	args := []string{"run", "-i", "--rm", "--name", name}

	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, cfg.Env[k]))
	}

	args = append(args, cfg.Image)
	args = append(args, cfg.Args...)

	logging.Debug(subsystem, "Container launch for %s: %s %s", cfg.ID, r.Name(), strings.Join(redactEnv(args), " "))

	command := r.Name()
	if cfg.Command != "" {
		// An explicit command selects the runtime binary, e.g. a full path.
		command = cfg.Command
	}
	return LaunchSpec{Command: command, Args: args, ContainerName: name}, nil
}

// RemoveContainer removes a container
func (r *CLIRuntime) RemoveContainer(ctx context.Context, name string) error {
	logging.Debug(subsystem, "Removing container %s", name)

	cmd := execCommandContext(ctx, r.Name(), "rm", "-f", name)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if isNoSuchContainer(string(output)) {
			return nil
		}
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}
	return nil
}

// ContainerName returns a unique container name for server id.
func ContainerName(id string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return namePrefix + sanitizeName(id) + "-" + suffix
}

// sanitizeName keeps characters docker accepts in container names.
func sanitizeName(id string) string {
	var b strings.Builder
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.', c == '-':
			b.WriteRune(c)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "server"
	}
	return b.String()
}

func isNoSuchContainer(output string) bool {
	out := strings.ToLower(output)
	return strings.Contains(out, "no such container") || strings.Contains(out, "no container with name")
}

// redactEnv hides -e values in log output.
func redactEnv(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i+1 < len(out); i++ {
		if out[i] == "-e" {
			if k, _, ok := strings.Cut(out[i+1], "="); ok {
				out[i+1] = k + "=***"
			}
			i++
		}
	}
	return out
}
