package transport

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/testing/mock"
)

const fixture = `
name: files
tools:
  - name: echo
    description: Echo a message
    responses:
      - response: "echo: {{ .message }}"
`

func initializeRequest(t *testing.T, id int64) []byte {
	t.Helper()
	req, err := protocol.NewRequest(protocol.NewNumberID(id), protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.LatestProtocolVersion,
		Capabilities:    protocol.DefaultClientCapabilities(),
		ClientInfo:      protocol.Implementation{Name: "test", Version: "0.0.1"},
	})
	require.NoError(t, err)
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func receiveResponse(t *testing.T, tr Transport) *protocol.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		raw, err := tr.Receive(ctx)
		require.NoError(t, err)
		msg, err := protocol.ParseMessage(raw)
		require.NoError(t, err)
		if msg.Kind == protocol.KindResponse {
			return msg.Response
		}
	}
}

func newPipeServer(t *testing.T, cfgYAML string) *Stream {
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

	s := NewStream(clientR, clientW)
	t.Cleanup(func() {
		cancel()
		_ = s.Close(context.Background())
	})
	return s
}

func TestStream_InitializeRoundTrip(t *testing.T) {
	s := newPipeServer(t, fixture)

	require.NoError(t, s.Send(context.Background(), initializeRequest(t, 1)))
	resp := receiveResponse(t, s)

	assert.Equal(t, protocol.NewNumberID(1), resp.ID)
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.NotEmpty(t, result.ProtocolVersion)
	assert.Equal(t, "mock-files", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.Tools)
}

func TestStream_Framing(t *testing.T) {
	r, peerW := io.Pipe()
	peerR, w := io.Pipe()
	s := NewStream(r, w)
	defer s.Close(context.Background())

	go func() {
		_, _ = peerW.Write([]byte("\n  \n{\"a\":1}\n{\"b\":2}"))
		peerW.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := s.Receive(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(first))

	// The last frame has no trailing newline but is still delivered.
	second, err := s.Receive(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(second))

	_, err = s.Receive(ctx)
	assert.ErrorIs(t, err, io.EOF)

	written := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := peerR.Read(buf)
		written <- string(buf[:n])
	}()
	require.NoError(t, s.Send(ctx, []byte(`{"c":3}`)))
	assert.Equal(t, "{\"c\":3}\n", <-written)

	assert.Error(t, s.Send(ctx, []byte("{\n}")))
}

func TestStream_ClosedSend(t *testing.T) {
	r, _ := io.Pipe()
	_, w := io.Pipe()
	s := NewStream(r, w)
	require.NoError(t, s.Close(context.Background()))

	assert.ErrorIs(t, s.Send(context.Background(), []byte(`{}`)), ErrClosed)
	_, err := s.Receive(context.Background())
	assert.Error(t, err)
}

func TestStream_ReceiveHonoursContext(t *testing.T) {
	r, _ := io.Pipe()
	_, w := io.Pipe()
	s := NewStream(r, w)
	defer s.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
