package manager

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/containerizer"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/registry"
	"github.com/giantswarm/mcpcore/internal/testing/mock"
	"github.com/giantswarm/mcpcore/internal/transport"
)

func request(t *testing.T, id int64, method string, params any) *protocol.Request {
	t.Helper()
	req, err := protocol.NewRequest(protocol.NewNumberID(id), method, params)
	require.NoError(t, err)
	return req
}

func runningManager(t *testing.T) *Manager {
	t.Helper()
	m := newManager(t, newSource(helperServer("files", true)))
	require.NoError(t, m.StartServer(context.Background(), "files"))
	return m
}

func TestForward_RejectsOtherMethods(t *testing.T) {
	// No servers at all: rejected methods never look at the server.
	m := newManager(t, newSource())

	for _, method := range []string{"tools/list", "prompts/get", "initialize", "resources/list", "sampling/createMessage"} {
		t.Run(method, func(t *testing.T) {
			resp, err := m.Forward(context.Background(), "files", request(t, 9, method, nil))
			require.NoError(t, err)
			require.NotNil(t, resp.Error)
			assert.Equal(t, protocol.CodeMethodNotFound, resp.Error.Code)
			assert.Equal(t, protocol.NewNumberID(9), resp.ID)
		})
	}
}

func TestForward_PassesAllowedMethods(t *testing.T) {
	m := runningManager(t)
	ctx := context.Background()

	resp, err := m.Forward(ctx, "files", request(t, 41, protocol.MethodToolsCall, protocol.CallToolParams{Name: "echo"}))
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Equal(t, protocol.NewNumberID(41), resp.ID)
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "pong", result.Content.Text())

	resp, err = m.Forward(ctx, "files", request(t, 42, protocol.MethodResourcesRead, protocol.ReadResourceParams{URI: "file:///readme"}))
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), "hello")

	resp, err = m.Forward(ctx, "files", request(t, 43, protocol.MethodPing, nil))
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
}

func TestForward_NotConnected(t *testing.T) {
	m := newManager(t, newSource(helperServer("files", false)))

	_, err := m.Forward(context.Background(), "files", request(t, 1, protocol.MethodPing, nil))
	assert.True(t, api.IsNotConnected(err), "got %v", err)

	_, err = m.Forward(context.Background(), "unknown", request(t, 1, protocol.MethodPing, nil))
	assert.True(t, api.IsServerNotFound(err), "got %v", err)
}

func TestFetchUIResource(t *testing.T) {
	m := runningManager(t)
	ctx := context.Background()

	result, err := m.FetchUIResource(ctx, "files", "ui://files/panel")
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "<p>panel</p>", result.Contents[0].Text)
	assert.Equal(t, "text/html", result.Contents[0].MIMEType)
}

func TestFetchUIResource_RejectsOtherSchemes(t *testing.T) {
	// The server id does not even exist: the URI check comes first.
	m := newManager(t, newSource())

	for _, uri := range []string{"http://example.com/widget", "file:///etc/passwd", "ui:///no-server", "::"} {
		_, err := m.FetchUIResource(context.Background(), "fs", uri)
		assert.ErrorIs(t, err, ErrInvalidUIResource, uri)
	}
}

func TestCallTool_Qualified(t *testing.T) {
	m := runningManager(t)
	ctx := context.Background()

	result, err := m.CallTool(ctx, "mcp__files__echo", nil)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "pong", result.Content.Text())

	result, err = m.CallTool(ctx, "mcp__files__explode", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content.Text(), "boom")

	_, err = m.CallTool(ctx, "mcp__files__missing", nil)
	assert.ErrorIs(t, err, registry.ErrToolNotFound)
}

// An unknown tool on a server that negotiated tools reaches the server and
// is reported by it; the capability gate only looks at the capability.
func TestCallServerTool_UnknownToolIsServerReported(t *testing.T) {
	m := runningManager(t)

	result, err := m.CallServerTool(context.Background(), "files", "does_not_exist", nil)
	assert.False(t, api.IsCapabilityError(err))
	if err != nil {
		_, isRPC := protocol.ErrorCode(err)
		assert.True(t, isRPC, "expected a JSON-RPC error from the server, got %v", err)
		return
	}
	assert.True(t, result.IsError)
}

func TestGetPrompt(t *testing.T) {
	m := runningManager(t)
	ctx := context.Background()

	prompts, err := m.ListPrompts(ctx, "files")
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "review", prompts[0].Name)

	result, err := m.GetPrompt(ctx, "files", "review", map[string]string{"path": "main.go"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Messages)
}

// fakeContainers launches the mock helper in place of a container.
type fakeContainers struct {
	mu      sync.Mutex
	pulled  []string
	removed []string
}

func (f *fakeContainers) Name() string { return "docker" }

func (f *fakeContainers) PullImage(_ context.Context, image string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, image)
	return nil
}

func (f *fakeContainers) LaunchSpec(cfg api.ServerConfig) (containerizer.LaunchSpec, error) {
	command, args, env := mock.HelperCommand(filesFixture)
	return containerizer.LaunchSpec{
		Command:       command,
		Args:          args,
		Env:           helperEnv(env),
		ContainerName: "mcpcore-" + cfg.ID + "-test",
	}, nil
}

func (f *fakeContainers) RemoveContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	return nil
}

func TestContainerServer(t *testing.T) {
	containers := &fakeContainers{}
	cfg := api.ServerConfig{
		ID:      "boxed",
		Type:    api.ServerTypeContainer,
		Image:   "ghcr.io/example/files:1",
		Enabled: true,
	}
	m := newManager(t, newSource(cfg), WithContainerRuntime(containers))
	ctx := context.Background()

	require.NoError(t, m.StartServer(ctx, "boxed"))
	requirePhase(t, m, "boxed", PhaseRunning)
	assert.Equal(t, []string{"ghcr.io/example/files:1"}, containers.pulled)

	infos, err := m.Servers(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "docker", infos[0].Command)

	require.NoError(t, m.StopServer(ctx, "boxed"))
	assert.Equal(t, []string{"mcpcore-boxed-test"}, containers.removed)
}

func TestRemoteServer(t *testing.T) {
	cfg, err := mock.ParseConfig([]byte(filesFixture))
	require.NoError(t, err)
	srv := mock.NewHTTPServer(mock.NewServer(cfg), nil)
	endpoint, err := srv.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Stop(context.Background())
		assert.NoError(t, srv.GetError())
	})

	m := newManager(t, newSource(api.ServerConfig{
		ID:      "remote",
		Type:    api.ServerTypeRemote,
		URL:     endpoint,
		Headers: map[string]string{"X-Client": "{{ .ID }}"},
		Enabled: true,
	}))
	ctx := context.Background()

	require.NoError(t, m.StartServer(ctx, "remote"))
	requirePhase(t, m, "remote", PhaseRunning)

	result, err := m.CallTool(ctx, "mcp__remote__echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", result.Content.Text())

	require.NoError(t, m.StopServer(ctx, "remote"))
	requirePhase(t, m, "remote", PhaseStopped)
}

func TestRemoteServer_PeerGoneFailsServer(t *testing.T) {
	cfg, err := mock.ParseConfig([]byte(filesFixture))
	require.NoError(t, err)
	srv := mock.NewHTTPServer(mock.NewServer(cfg), nil)
	endpoint, err := srv.Start(context.Background())
	require.NoError(t, err)

	m := newManager(t, newSource(api.ServerConfig{
		ID:      "remote",
		Type:    api.ServerTypeRemote,
		URL:     endpoint,
		Enabled: true,
	}))
	ctx := context.Background()
	require.NoError(t, m.StartServer(ctx, "remote"))
	requirePhase(t, m, "remote", PhaseRunning)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(stopCtx))

	_, err = m.CallServerTool(ctx, "remote", "echo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrConnectionLost)

	require.Eventually(t, func() bool {
		status, err := m.ServerStatus("remote")
		return err == nil && status.Phase == PhaseError
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := m.Connection("remote")
	assert.False(t, ok)
	entries, err := m.Tools("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoteServer_DialFailure(t *testing.T) {
	m := newManager(t, newSource(api.ServerConfig{
		ID:      "remote",
		Type:    api.ServerTypeRemote,
		URL:     "http://127.0.0.1:1/mcp",
		Enabled: true,
		Timeout: 5,
	}))

	err := m.StartServer(context.Background(), "remote")
	require.Error(t, err)
	requirePhase(t, m, "remote", PhaseError)
}

func TestRenderPrompt(t *testing.T) {
	m := runningManager(t)
	ctx := context.Background()

	_, err := m.RenderPrompt(ctx, "files", "review", nil)
	assert.ErrorIs(t, err, ErrMissingPromptArguments)
	assert.Contains(t, err.Error(), "path")

	_, err = m.RenderPrompt(ctx, "files", "summarize", nil)
	assert.ErrorIs(t, err, ErrPromptNotFound)

	content, err := m.RenderPrompt(ctx, "files", "review", map[string]string{"path": "main.go"})
	require.NoError(t, err)
	assert.Equal(t, "review", content.Name)
	require.Len(t, content.Messages, 1)
	assert.Equal(t, protocol.RoleUser, content.Messages[0].Role)
}
