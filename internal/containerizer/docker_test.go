package containerizer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/api"
)

// init sets up the test environment
func init() {
	// Replace the exec command context with our mock in tests
	execCommandContext = mockExecCommandContext
}

// mockExecCommandContext is our mock implementation
func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "No command\n")
		os.Exit(2)
	}

	cmd, args := args[0], args[1:]
	if cmd != "docker" && cmd != "podman" {
		fmt.Fprintf(os.Stderr, "unknown runtime %s\n", cmd)
		os.Exit(127)
	}

	switch args[0] {
	case "info":
		os.Exit(0)

	case "image":
		if len(args) > 2 && args[1] == "inspect" && args[2] == "alpine:latest" {
			os.Exit(0)
		}
		os.Exit(1)

	case "pull":
		if len(args) > 1 && args[1] == "nonexistent/image:doesnotexist" {
			fmt.Fprintf(os.Stderr, "Error response from daemon: pull access denied\n")
			os.Exit(1)
		}
		fmt.Printf("Pulling %s\n", args[1])
		os.Exit(0)

	case "rm":
		name := args[len(args)-1]
		switch {
		case strings.HasSuffix(name, "gone"):
			fmt.Fprintf(os.Stderr, "Error response from daemon: No such container: %s\n", name)
			os.Exit(1)
		case strings.HasSuffix(name, "stuck"):
			fmt.Fprintf(os.Stderr, "Error response from daemon: removal in progress\n")
			os.Exit(1)
		}
		os.Exit(0)
	}

	fmt.Fprintf(os.Stderr, "unexpected args: %v\n", args)
	os.Exit(1)
}

func TestNewRuntime(t *testing.T) {
	tests := []struct {
		kind    string
		want    string
		wantErr bool
	}{
		{"", "docker", false},
		{"docker", "docker", false},
		{"Podman", "podman", false},
		{"containerd", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rt, err := NewRuntime(tt.kind)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Name())
		})
	}
}

func TestCLIRuntime_Available(t *testing.T) {
	rt, err := NewRuntime("docker")
	require.NoError(t, err)
	assert.NoError(t, rt.Available(context.Background()))
}

func TestCLIRuntime_PullImage(t *testing.T) {
	rt, err := NewRuntime("docker")
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, rt.PullImage(ctx, "alpine:latest"), "present image")
	assert.NoError(t, rt.PullImage(ctx, "nginx:latest"), "pulled image")

	err = rt.PullImage(ctx, "nonexistent/image:doesnotexist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pull access denied")
}

func TestCLIRuntime_LaunchSpec(t *testing.T) {
	rt, err := NewRuntime("podman")
	require.NoError(t, err)

	spec, err := rt.LaunchSpec(api.ServerConfig{
		ID:    "kube/prod",
		Type:  api.ServerTypeContainer,
		Image: "ghcr.io/example/kube-mcp:1.2",
		Args:  []string{"--read-only"},
		Env:   map[string]string{"Z": "last", "A": "first"},
	})
	require.NoError(t, err)

	assert.Equal(t, "podman", spec.Command)
	assert.True(t, strings.HasPrefix(spec.ContainerName, "mcpcore-kube-prod-"), spec.ContainerName)
	assert.Equal(t, []string{
		"run", "-i", "--rm", "--name", spec.ContainerName,
		"-e", "A=first", "-e", "Z=last",
		"ghcr.io/example/kube-mcp:1.2", "--read-only",
	}, spec.Args)
	assert.Empty(t, spec.Env)
}

func TestCLIRuntime_LaunchSpecExplicitBinary(t *testing.T) {
	rt, err := NewRuntime("docker")
	require.NoError(t, err)

	spec, err := rt.LaunchSpec(api.ServerConfig{ID: "a", Type: api.ServerTypeContainer, Command: "/usr/local/bin/docker", Image: "busybox"})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/docker", spec.Command)
	assert.Contains(t, spec.Args, "busybox")
}

func TestCLIRuntime_LaunchSpecWithoutImage(t *testing.T) {
	rt, err := NewRuntime("docker")
	require.NoError(t, err)

	cfg := api.ServerConfig{
		ID:      "a",
		Type:    api.ServerTypeContainer,
		Command: "docker",
		Args:    []string{"run", "-i", "--rm", "mcp/fetch"},
		Env:     map[string]string{"DOCKER_HOST": "unix:///tmp/docker.sock"},
	}
	spec, err := rt.LaunchSpec(cfg)
	require.NoError(t, err)
	assert.Equal(t, LaunchSpec{Command: "docker", Args: cfg.Args, Env: cfg.Env}, spec)

	_, err = rt.LaunchSpec(api.ServerConfig{ID: "b", Type: api.ServerTypeContainer})
	require.Error(t, err)
	assert.True(t, api.IsConfigError(err))
}

func TestContainerName_Unique(t *testing.T) {
	a := ContainerName("files")
	b := ContainerName("files")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("mcpcore-files-")+12)
	assert.True(t, strings.HasPrefix(ContainerName("!!"), "mcpcore----"))
	assert.True(t, strings.HasPrefix(ContainerName(""), "mcpcore-server-"))
}

func TestCLIRuntime_RemoveContainer(t *testing.T) {
	rt, err := NewRuntime("docker")
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, rt.RemoveContainer(ctx, "mcpcore-a-1"))
	assert.NoError(t, rt.RemoveContainer(ctx, "mcpcore-a-gone"), "missing containers are ignored")
	assert.Error(t, rt.RemoveContainer(ctx, "mcpcore-a-stuck"))
}

func TestRedactEnv(t *testing.T) {
	got := redactEnv([]string{"run", "-e", "TOKEN=secret", "-e", "FLAG", "img"})
	assert.Equal(t, []string{"run", "-e", "TOKEN=***", "-e", "FLAG", "img"}, got)
}
