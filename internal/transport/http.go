package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/elnormous/contenttype"
	"github.com/tmaxmax/go-sse"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const (
	headerSessionID       = "Mcp-Session-Id"
	headerProtocolVersion = "Mcp-Protocol-Version"

	// maxResponseSize caps a single JSON response body or SSE event.
	maxResponseSize = 16 * 1024 * 1024
)

var (
	jsonMediaType        = contenttype.NewMediaType("application/json")
	eventStreamMediaType = contenttype.NewMediaType("text/event-stream")
)

// HTTPConfig describes a remote streamable HTTP endpoint.
type HTTPConfig struct {
	ServerID string
	URL      string
	// Headers are added to every request, e.g. Authorization.
	Headers map[string]string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// HTTP is a Transport for the streamable HTTP binding. Every outgoing
// message is a POST; replies arrive either as a JSON body or as an SSE
// stream on that POST. Server initiated messages arrive on a long lived GET
// stream that is opened once the session is initialized, if the server
// offers one.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client

	incoming chan []byte
	done     chan struct{}

	// lost is closed with lostErr set once the peer is unreachable.
	lost     chan struct{}
	lostErr  error
	lostOnce sync.Once

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.Mutex
	sessionID       string
	protocolVersion string

	listenOnce sync.Once
	closeOnce  sync.Once
}

// NewHTTP validates the endpoint and returns an idle transport. No request
// is made until the first Send.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, api.NewTransportError(cfg.ServerID, "dial", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, api.NewTransportError(cfg.ServerID, "dial", fmt.Errorf("unsupported URL scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, api.NewTransportError(cfg.ServerID, "dial", errors.New("URL has no host"))
	}

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	base, cancel := context.WithCancel(context.Background())
	return &HTTP{
		cfg:      cfg,
		client:   client,
		incoming: make(chan []byte, 64),
		done:     make(chan struct{}),
		lost:     make(chan struct{}),
		base:     base,
		cancel:   cancel,
	}, nil
}

// SessionID returns the session id assigned by the server, if any.
func (h *HTTP) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

// SetProtocolVersion records the negotiated version, sent on every later
// request.
func (h *HTTP) SetProtocolVersion(v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.protocolVersion = v
}

// Send POSTs msg. A JSON reply is queued before Send returns; an SSE reply
// is consumed in the background.
func (h *HTTP) Send(ctx context.Context, msg []byte) error {
	select {
	case <-h.done:
		return ErrClosed
	case <-h.lost:
		return h.lostErr
	default:
	}
	sentSession := h.SessionID()

	reqCtx, cancelReq := context.WithCancel(h.base)
	stop := context.AfterFunc(ctx, cancelReq)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, h.cfg.URL, bytes.NewReader(msg))
	if err != nil {
		stop()
		cancelReq()
		return api.NewTransportError(h.cfg.ServerID, "send", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	h.applyHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		stop()
		cancelReq()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if h.base.Err() != nil {
			return ErrClosed
		}
		return h.markLost(err)
	}
	h.captureSession(resp)

	switch {
	case resp.StatusCode == http.StatusAccepted:
		stop()
		cancelReq()
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		h.maybeListen(msg)
		return nil
	case resp.StatusCode == http.StatusNotFound && sentSession != "":
		stop()
		cancelReq()
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return h.markLost(fmt.Errorf("session %s no longer exists", sentSession))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		stop()
		cancelReq()
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return api.NewTransportError(h.cfg.ServerID, "send",
			fmt.Errorf("server answered %s: %s", resp.Status, bytes.TrimSpace(body)))
	}

	ctype := contenttype.NewMediaType(resp.Header.Get("Content-Type"))
	if ctype.Matches(eventStreamMediaType) {
		// The stream outlives this call; detach it from ctx.
		if !stop() {
			resp.Body.Close()
			cancelReq()
			return ctx.Err()
		}
		body := resp.Body
		if !h.spawn(func() {
			defer cancelReq()
			h.readEvents(body)
		}) {
			body.Close()
			cancelReq()
			return ErrClosed
		}
		h.maybeListen(msg)
		return nil
	}

	defer stop()
	defer cancelReq()
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return api.NewTransportError(h.cfg.ServerID, "send", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		h.maybeListen(msg)
		return nil
	}
	if !ctype.Matches(jsonMediaType) {
		return api.NewTransportError(h.cfg.ServerID, "send",
			fmt.Errorf("unexpected response content type %q", resp.Header.Get("Content-Type")))
	}
	if err := h.enqueueBody(body); err != nil {
		return err
	}
	h.maybeListen(msg)
	return nil
}

// enqueueBody splits a JSON-RPC batch into individual messages.
func (h *HTTP) enqueueBody(body []byte) error {
	if body[0] != '[' {
		h.enqueue(body)
		return nil
	}
	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		return api.NewProtocolError("malformed batch response", err)
	}
	for _, m := range batch {
		h.enqueue(m)
	}
	return nil
}

func (h *HTTP) enqueue(msg []byte) {
	select {
	case h.incoming <- msg:
	case <-h.done:
	}
}

func (h *HTTP) readEvents(body io.ReadCloser) {
	defer body.Close()
	cfg := &sse.ReadConfig{MaxEventSize: maxResponseSize}
	for ev, err := range sse.Read(body, cfg) {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logging.Debug(subsystem, "Server %s event stream ended: %v", h.cfg.ServerID, err)
			}
			return
		}
		if ev.Type != "" && ev.Type != "message" {
			continue
		}
		if len(ev.Data) == 0 {
			continue
		}
		h.enqueue([]byte(ev.Data))
	}
}

// maybeListen opens the GET stream after the initialized notification has
// been delivered.
func (h *HTTP) maybeListen(sent []byte) {
	var probe struct {
		Method string `json:"method"`
	}
	if json.Unmarshal(sent, &probe) != nil || probe.Method != "notifications/initialized" {
		return
	}
	h.listenOnce.Do(func() {
		h.spawn(h.listen)
	})
}

// spawn runs fn on a goroutine tracked by Close. It reports false, without
// running fn, once the transport is closed.
func (h *HTTP) spawn(fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
	return true
}

// markLost records that the peer is gone and returns the error every later
// Send and Receive reports.
func (h *HTTP) markLost(cause error) error {
	h.lostOnce.Do(func() {
		h.lostErr = api.NewTransportError(h.cfg.ServerID, "send", fmt.Errorf("%w: %v", ErrConnectionLost, cause))
		close(h.lost)
	})
	<-h.lost
	return h.lostErr
}

func (h *HTTP) listen() {
	req, err := http.NewRequestWithContext(h.base, http.MethodGet, h.cfg.URL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	h.applyHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		if h.base.Err() == nil {
			logging.Debug(subsystem, "Server %s notification stream unavailable: %v", h.cfg.ServerID, err)
		}
		return
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp.Body.Close()
		logging.Debug(subsystem, "Server %s does not offer a notification stream", h.cfg.ServerID)
		return
	}
	if resp.StatusCode != http.StatusOK ||
		!contenttype.NewMediaType(resp.Header.Get("Content-Type")).Matches(eventStreamMediaType) {
		resp.Body.Close()
		logging.Debug(subsystem, "Server %s notification stream rejected: %s", h.cfg.ServerID, resp.Status)
		return
	}
	h.readEvents(resp.Body)
}

func (h *HTTP) applyHeaders(req *http.Request) {
	for k, v := range h.cfg.Headers {
		req.Header.Set(k, v)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessionID != "" {
		req.Header.Set(headerSessionID, h.sessionID)
	}
	if h.protocolVersion != "" {
		req.Header.Set(headerProtocolVersion, h.protocolVersion)
	}
}

func (h *HTTP) captureSession(resp *http.Response) {
	id := resp.Header.Get(headerSessionID)
	if id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessionID == "" {
		h.sessionID = id
	}
}

// Receive returns the next message from any response body or the
// notification stream.
func (h *HTTP) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrClosed
	case msg := <-h.incoming:
		return msg, nil
	case <-h.lost:
		return nil, h.lostErr
	}
}

// Close ends the session with a best-effort DELETE and tears down all open
// streams.
func (h *HTTP) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		if id := h.SessionID(); id != "" {
			h.terminateSession(ctx)
		}
		h.mu.Lock()
		close(h.done)
		h.mu.Unlock()
		h.cancel()

		waited := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
		}
	})
	return nil
}

func (h *HTTP) terminateSession(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.cfg.URL, nil)
	if err != nil {
		return
	}
	h.applyHeaders(req)
	resp, err := h.client.Do(req)
	if err != nil {
		logging.Debug(subsystem, "Server %s session delete failed: %v", h.cfg.ServerID, err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
