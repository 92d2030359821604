package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/testing/mock"
)

type recorder struct {
	mu       sync.Mutex
	methods  []string
	sessions []string
	auth     []string
}

func (r *recorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.methods = append(r.methods, req.Method)
		r.sessions = append(r.sessions, req.Header.Get(headerSessionID))
		r.auth = append(r.auth, req.Header.Get("Authorization"))
		r.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}

func (r *recorder) snapshot() ([]string, []string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...), append([]string(nil), r.sessions...), append([]string(nil), r.auth...)
}

func startHTTPMock(t *testing.T, rec *recorder) string {
	t.Helper()
	cfg, err := mock.ParseConfig([]byte(fixture))
	require.NoError(t, err)
	srv := mock.NewHTTPServer(mock.NewServer(cfg), rec.wrap)
	endpoint, err := srv.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return endpoint
}

func TestHTTP_SessionLifecycle(t *testing.T) {
	rec := &recorder{}
	endpoint := startHTTPMock(t, rec)

	h, err := NewHTTP(HTTPConfig{
		ServerID: "remote",
		URL:      endpoint,
		Headers:  map[string]string{"Authorization": "Bearer token"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.Send(ctx, initializeRequest(t, 1)))
	resp := receiveResponse(t, h)
	require.Nil(t, resp.Error)
	assert.NotEmpty(t, h.SessionID())

	n, err := protocol.NewNotification(protocol.NotificationInitialized, nil)
	require.NoError(t, err)
	data, err := json.Marshal(n)
	require.NoError(t, err)
	require.NoError(t, h.Send(ctx, data))

	req, err := protocol.NewRequest(protocol.NewNumberID(2), protocol.MethodToolsList, nil)
	require.NoError(t, err)
	data, err = json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, h.Send(ctx, data))
	resp = receiveResponse(t, h)
	assert.Equal(t, protocol.NewNumberID(2), resp.ID)
	assert.Contains(t, string(resp.Result), "echo")

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, h.Close(closeCtx))

	methods, sessions, auth := rec.snapshot()
	assert.Equal(t, http.MethodPost, methods[0])
	assert.Empty(t, sessions[0])
	assert.Contains(t, methods, http.MethodDelete)
	for i := 1; i < len(sessions); i++ {
		assert.Equal(t, h.SessionID(), sessions[i], "request %d (%s)", i, methods[i])
	}
	for _, a := range auth {
		assert.Equal(t, "Bearer token", a)
	}

	_, err = h.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHTTP_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPConfig{ServerID: "remote", URL: srv.URL})
	require.NoError(t, err)
	defer h.Close(context.Background())

	err = h.Send(context.Background(), initializeRequest(t, 1))
	require.Error(t, err)
	assert.True(t, api.IsTransportError(err))
	assert.Contains(t, err.Error(), "500")
	assert.NotErrorIs(t, err, ErrConnectionLost)
}

// jsonResultServer answers every POST with an empty result for id 1 and
// assigns session "abc". Requests carrying the session after expire is
// set get 404.
func jsonResultServer(t *testing.T, expired *bool, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gone := *expired
		mu.Unlock()
		if gone && r.Header.Get(headerSessionID) == "abc" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(headerSessionID, "abc")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
}

func TestHTTP_UnreachablePeerIsLost(t *testing.T) {
	var (
		mu      sync.Mutex
		expired bool
	)
	srv := jsonResultServer(t, &expired, &mu)

	h, err := NewHTTP(HTTPConfig{ServerID: "remote", URL: srv.URL})
	require.NoError(t, err)
	defer h.Close(context.Background())

	ctx := context.Background()
	require.NoError(t, h.Send(ctx, initializeRequest(t, 1)))
	receiveResponse(t, h)

	srv.Close()

	err = h.Send(ctx, initializeRequest(t, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.True(t, api.IsTransportError(err))

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = h.Receive(recvCtx)
	assert.ErrorIs(t, err, ErrConnectionLost)

	err = h.Send(ctx, initializeRequest(t, 3))
	assert.ErrorIs(t, err, ErrConnectionLost)
}

func TestHTTP_ExpiredSessionIsLost(t *testing.T) {
	var (
		mu      sync.Mutex
		expired bool
	)
	srv := jsonResultServer(t, &expired, &mu)
	defer srv.Close()

	h, err := NewHTTP(HTTPConfig{ServerID: "remote", URL: srv.URL})
	require.NoError(t, err)
	defer h.Close(context.Background())

	ctx := context.Background()
	require.NoError(t, h.Send(ctx, initializeRequest(t, 1)))
	receiveResponse(t, h)
	require.Equal(t, "abc", h.SessionID())

	mu.Lock()
	expired = true
	mu.Unlock()

	err = h.Send(ctx, initializeRequest(t, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Contains(t, err.Error(), "session abc")
}

func TestHTTP_NoGoroutinesAfterClose(t *testing.T) {
	h, err := NewHTTP(HTTPConfig{ServerID: "remote", URL: "http://127.0.0.1:1/mcp"})
	require.NoError(t, err)

	ran := make(chan struct{})
	require.True(t, h.spawn(func() { close(ran) }))
	<-ran

	require.NoError(t, h.Close(context.Background()))
	assert.False(t, h.spawn(func() { t.Error("spawned after Close") }))

	err = h.Send(context.Background(), initializeRequest(t, 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHTTP_EventStreamResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set(headerSessionID, "abc")
		_, _ = w.Write([]byte("event: message\ndata: {\"jsonrpc\":\"2.0\",\"method\":\"notifications/message\",\"params\":{\"level\":\"info\"}}\n\n"))
		_, _ = w.Write([]byte("event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{}}\n\n"))
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPConfig{ServerID: "remote", URL: srv.URL})
	require.NoError(t, err)
	defer h.Close(context.Background())

	require.NoError(t, h.Send(context.Background(), initializeRequest(t, 1)))
	resp := receiveResponse(t, h)
	assert.Equal(t, protocol.NewNumberID(1), resp.ID)
	assert.Equal(t, "abc", h.SessionID())
}

func TestNewHTTP_RejectsBadURLs(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "http://", "::"} {
		_, err := NewHTTP(HTTPConfig{ServerID: "remote", URL: u})
		assert.True(t, api.IsTransportError(err), u)
	}
}
