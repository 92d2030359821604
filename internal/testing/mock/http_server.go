package mock

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// HTTPServer serves a mock MCP server over streamable HTTP on a loopback
// port.
type HTTPServer struct {
	mockServer    *Server
	httpServer    *http.Server
	listener      net.Listener
	handler       http.Handler
	port          int
	mu            sync.RWMutex
	running       bool
	shutdownError error
}

// NewHTTPServer creates a new HTTP mock server from an existing mock server.
// wrap, when non-nil, decorates the MCP handler, e.g. to record requests.
func NewHTTPServer(mockServer *Server, wrap func(http.Handler) http.Handler) *HTTPServer {
	var handler http.Handler = server.NewStreamableHTTPServer(mockServer.mcpServer)
	if wrap != nil {
		handler = wrap(handler)
	}
	return &HTTPServer{
		mockServer: mockServer,
		handler:    handler,
	}
}

// Start starts the HTTP server on a dynamically allocated port and returns
// the endpoint URL.
func (s *HTTPServer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.endpointLocked(), nil
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to find available port: %w", err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.mu.Lock()
			s.shutdownError = err
			s.mu.Unlock()
		}
	}()

	s.running = true
	return s.endpointLocked(), nil
}

// Stop gracefully shuts down the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	shutdownCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	// Open notification streams never finish on their own.
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.httpServer.Close()
	}

	s.running = false
	s.httpServer = nil
	return nil
}

func (s *HTTPServer) endpointLocked() string {
	return fmt.Sprintf("http://127.0.0.1:%d/mcp", s.port)
}

// GetError returns the error that stopped the server from serving, if any.
func (s *HTTPServer) GetError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shutdownError
}
