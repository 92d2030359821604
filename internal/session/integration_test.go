package session

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/testing/mock"
	"github.com/giantswarm/mcpcore/internal/transport"
)

const fullFixture = `
name: docs
tools:
  - name: echo
    description: Echo a message
    responses:
      - condition:
          message: "fail"
        error: "refusing {{ .message }}"
      - response: "echo: {{ .message }}"
resources:
  - uri: "file:///readme"
    name: readme
    mime_type: text/plain
    text: "hello world"
prompts:
  - name: review
    description: Review code
    arguments:
      - name: code
        required: true
    messages:
      - role: user
        text: "Review {{code}}"
      - role: assistant
        text: "Sure."
`

func connectMock(t *testing.T, cfgYAML string) *Connection {
	t.Helper()
	cfg, err := mock.ParseConfig([]byte(cfgYAML))
	require.NoError(t, err)

	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = mock.NewServer(cfg).ServeStdio(ctx, serverR, serverW)
		serverW.Close()
	}()

	c := New(transport.NewStream(clientR, clientW), WithServerID(cfg.Name))
	require.NoError(t, c.Initialize(context.Background()))
	t.Cleanup(func() {
		_ = c.Close(context.Background())
		cancel()
	})
	return c
}

func TestConnection_AgainstMCPServer(t *testing.T) {
	c := connectMock(t, fullFixture)
	ctx := context.Background()

	assert.Equal(t, StateReady, c.State())
	assert.True(t, protocol.IsSupportedVersion(c.ProtocolVersion()))
	assert.Equal(t, "mock-docs", c.ServerInfo().Name)
	caps := c.Capabilities()
	assert.True(t, caps.Has(protocol.CapabilityTools))
	assert.True(t, caps.Has(protocol.CapabilityResources))
	assert.True(t, caps.Has(protocol.CapabilityPrompts))

	require.NoError(t, c.Ping(ctx))

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)
	assert.Equal(t, "Echo a message", tools[0].Description)

	res, err := c.CallTool(ctx, "echo", map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "echo: hi", res.Content.Text())

	res, err = c.CallTool(ctx, "echo", map[string]any{"message": "fail"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "refusing fail", res.Content.Text())

	if res, err := c.CallTool(ctx, "nope", nil); err == nil {
		assert.True(t, res.IsError, "unknown tool must fail one way or the other")
	}

	resources, err := c.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "file:///readme", resources[0].URI)

	read, err := c.ReadResource(ctx, "file:///readme")
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "hello world", read.Contents[0].Text)
	assert.Equal(t, "text/plain", read.Contents[0].MIMEType)

	prompts, err := c.ListPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "review", prompts[0].Name)
	require.Len(t, prompts[0].Arguments, 1)
	assert.True(t, prompts[0].Arguments[0].Required)

	prompt, err := c.GetPrompt(ctx, "review", map[string]string{"code": "x := 1"})
	require.NoError(t, err)
	require.Len(t, prompt.Messages, 2)
	assert.Equal(t, protocol.RoleUser, prompt.Messages[0].Role)
	text, ok := prompt.Messages[0].Content.(protocol.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Review {{code}}", text.Text)

	assert.Empty(t, c.Anomalies())
}

func TestConnection_CloseAgainstMCPServer(t *testing.T) {
	c := connectMock(t, fullFixture)
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StateClosed, c.State())
	_, err := c.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
