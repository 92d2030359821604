package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/transport"
)

// handlerFunc answers one request. Returning (nil, nil) leaves the request
// unanswered.
type handlerFunc func(req *protocol.Request) (any, *protocol.Error)

// fakePeer is a scripted MCP server living behind an in-memory transport.
type fakePeer struct {
	t *testing.T

	mu       sync.Mutex
	handlers map[string]handlerFunc
	sent     []protocol.Message
	// sendErr, when set, is returned by Send instead of delivering.
	sendErr error

	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakePeer(t *testing.T) *fakePeer {
	p := &fakePeer{
		t:        t,
		handlers: map[string]handlerFunc{},
		in:       make(chan []byte, 128),
		closed:   make(chan struct{}),
	}
	p.handle(protocol.MethodInitialize, initializeHandler(protocol.LatestProtocolVersion, protocol.Capabilities{
		Tools:     &protocol.ToolsCapability{ListChanged: true},
		Resources: &protocol.ResourcesCapability{},
	}))
	p.handle(protocol.MethodPing, func(*protocol.Request) (any, *protocol.Error) {
		return struct{}{}, nil
	})
	return p
}

func initializeHandler(version string, caps protocol.Capabilities) handlerFunc {
	return func(*protocol.Request) (any, *protocol.Error) {
		return protocol.InitializeResult{
			ProtocolVersion: version,
			Capabilities:    caps,
			ServerInfo:      protocol.Implementation{Name: "fake", Version: "1.0.0"},
			Instructions:    "be nice",
		}, nil
	}
}

func (p *fakePeer) handle(method string, h handlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[method] = h
}

func (p *fakePeer) Send(ctx context.Context, msg []byte) error {
	select {
	case <-p.closed:
		return transport.ErrClosed
	default:
	}
	p.mu.Lock()
	sendErr := p.sendErr
	p.mu.Unlock()
	if sendErr != nil {
		return sendErr
	}
	m, err := protocol.ParseMessage(msg)
	require.NoError(p.t, err)

	p.mu.Lock()
	p.sent = append(p.sent, m)
	var h handlerFunc
	if m.Kind == protocol.KindRequest {
		h = p.handlers[m.Request.Method]
	}
	p.mu.Unlock()

	if h == nil {
		return nil
	}
	result, rpcErr := h(m.Request)
	switch {
	case rpcErr != nil:
		p.pushJSON(protocol.NewErrorResponse(m.Request.ID, rpcErr))
	case result != nil:
		resp, err := protocol.NewResultResponse(m.Request.ID, result)
		require.NoError(p.t, err)
		p.pushJSON(resp)
	}
	return nil
}

func (p *fakePeer) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, transport.ErrClosed
	case msg := <-p.in:
		return msg, nil
	}
}

func (p *fakePeer) Close(context.Context) error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePeer) failSends(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendErr = err
}

func (p *fakePeer) push(raw string) {
	p.in <- []byte(raw)
}

func (p *fakePeer) pushJSON(v any) {
	data, err := json.Marshal(v)
	require.NoError(p.t, err)
	p.in <- data
}

// sentMethods lists the methods of everything the client wrote so far.
func (p *fakePeer) sentMethods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.sent {
		if name := m.Method(); name != "" {
			out = append(out, name)
		} else {
			out = append(out, "response")
		}
	}
	return out
}

func (p *fakePeer) sentMessages() []protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Message(nil), p.sent...)
}

func (p *fakePeer) count(method string) int {
	n := 0
	for _, m := range p.sentMethods() {
		if m == method {
			n++
		}
	}
	return n
}

func readyConnection(t *testing.T, p *fakePeer, opts ...Option) *Connection {
	t.Helper()
	c := New(p, append([]Option{WithServerID("fake")}, opts...)...)
	require.NoError(t, c.Initialize(context.Background()))
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}
