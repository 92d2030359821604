package containerizer

import (
	"context"

	"github.com/giantswarm/mcpcore/internal/api"
)

// ContainerRuntime builds and cleans up container launches.
type ContainerRuntime interface {
	// Name returns the runtime CLI, for example "docker".
	Name() string

	// PullImage makes sure image is present locally.
	PullImage(ctx context.Context, image string) error

	// LaunchSpec returns the process to spawn for a container server.
	LaunchSpec(cfg api.ServerConfig) (LaunchSpec, error)

	// RemoveContainer force removes a container by name. Removing a
	// container that does not exist is not an error.
	RemoveContainer(ctx context.Context, name string) error
}

// LaunchSpec describes the process that runs a container server.
type LaunchSpec struct {
	Command string
	Args    []string
	// Env is passed to the runtime CLI itself. Server variables are passed
	// with -e flags in Args.
	Env map[string]string
	// ContainerName is set when the launch names the container and it should
	// be removed after the process exits.
	ContainerName string
}
