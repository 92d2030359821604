package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/protocol"
	"github.com/giantswarm/mcpcore/internal/transport"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const subsystem = "Session"

// DefaultRequestTimeout applies to requests whose context has no deadline.
const DefaultRequestTimeout = 60 * time.Second

// maxAnomalies bounds the anomaly log; older entries are dropped.
const maxAnomalies = 100

// ListChangedFunc is called after a list_changed notification invalidated
// the cached listing of kind.
type ListChangedFunc func(kind ListKind)

// Option configures a Connection.
type Option func(*Connection)

// WithRequestTimeout sets the default request timeout. Zero or negative
// disables the default; only the caller's context applies.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Connection) { c.timeout = d }
}

// WithListChangedHandler registers fn for list_changed notifications.
func WithListChangedHandler(fn ListChangedFunc) Option {
	return func(c *Connection) { c.onListChanged = fn }
}

// WithClientCapabilities overrides the capabilities offered in initialize.
func WithClientCapabilities(caps protocol.Capabilities) Option {
	return func(c *Connection) { c.clientCaps = caps }
}

// WithClientInfo overrides the client implementation info.
func WithClientInfo(info protocol.Implementation) Option {
	return func(c *Connection) { c.clientInfo = info }
}

// WithServerID names the server in logs and errors.
func WithServerID(id string) Option {
	return func(c *Connection) { c.serverID = id }
}

// Connection is one MCP session over a transport.
type Connection struct {
	t             transport.Transport
	serverID      string
	clientInfo    protocol.Implementation
	clientCaps    protocol.Capabilities
	timeout       time.Duration
	onListChanged ListChangedFunc

	mu              sync.Mutex
	state           State
	failure         error
	protocolVersion string
	serverInfo      protocol.Implementation
	serverCaps      protocol.Capabilities
	negotiated      protocol.Capabilities
	instructions    string
	nextID          int64
	pending         map[protocol.RequestID]chan *protocol.Response
	anomalies       []Anomaly

	cache listCache

	readerCancel context.CancelFunc
	readerDone   chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
}

// New returns a Disconnected connection over an established transport.
func New(t transport.Transport, opts ...Option) *Connection {
	c := &Connection{
		t:          t,
		clientInfo: protocol.Implementation{Name: "mcpcore", Version: "dev"},
		clientCaps: protocol.DefaultClientCapabilities(),
		timeout:    DefaultRequestTimeout,
		pending:    make(map[protocol.RequestID]chan *protocol.Response),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize performs the handshake and leaves the connection Ready. On any
// failure the connection is Failed and the error is returned.
func (c *Connection) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot initialize connection in state %s", state)
	}
	c.state = StateInitializing
	readerCtx, cancel := context.WithCancel(context.Background())
	c.readerCancel = cancel
	c.readerDone = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(readerCtx)

	params := protocol.InitializeParams{
		ProtocolVersion: protocol.LatestProtocolVersion,
		Capabilities:    c.clientCaps,
		ClientInfo:      c.clientInfo,
	}
	raw, err := c.request(ctx, protocol.MethodInitialize, params)
	if err != nil {
		c.fail(err)
		return err
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		err = api.NewProtocolError("malformed initialize result", err)
		c.fail(err)
		return err
	}
	if !protocol.IsSupportedVersion(result.ProtocolVersion) {
		err := api.NewProtocolError(fmt.Sprintf("unsupported protocol version %q", result.ProtocolVersion), nil)
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.protocolVersion = result.ProtocolVersion
	c.serverInfo = result.ServerInfo
	c.serverCaps = result.Capabilities
	c.negotiated = protocol.Negotiate(c.clientCaps, result.Capabilities)
	c.instructions = result.Instructions
	c.mu.Unlock()

	if v, ok := c.t.(interface{ SetProtocolVersion(string) }); ok {
		v.SetProtocolVersion(result.ProtocolVersion)
	}

	if err := c.notify(ctx, protocol.NotificationInitialized, nil); err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.state != StateInitializing {
		err := c.terminalErrLocked()
		c.mu.Unlock()
		return err
	}
	c.state = StateReady
	c.mu.Unlock()

	logging.Debug(subsystem, "Server %s ready: %s %s, protocol %s, capabilities %v",
		c.serverID, result.ServerInfo.Name, result.ServerInfo.Version, result.ProtocolVersion, c.negotiated.Names())
	return nil
}

// Call sends an arbitrary request and returns the raw result. The
// capability gate applies as for the typed operations.
func (c *Connection) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	var p any
	if len(params) > 0 {
		p = params
	}
	return c.request(ctx, method, p)
}

func (c *Connection) request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	switch {
	case c.state == StateReady:
	case c.state == StateInitializing && method == protocol.MethodInitialize:
	default:
		err := c.stateErrLocked()
		c.mu.Unlock()
		return nil, err
	}
	if capability := protocol.RequiredCapability(method); capability != "" && !c.negotiated.Has(capability) {
		c.mu.Unlock()
		return nil, api.NewCapabilityError(method, capability)
	}

	c.nextID++
	id := protocol.NewNumberID(c.nextID)
	ch := make(chan *protocol.Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		c.release(id)
		return nil, err
	}
	data, err := json.Marshal(req)
	if err != nil {
		c.release(id)
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.t.Send(ctx, data); err != nil {
		c.release(id)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, c.contextErr(method, ctxErr)
		}
		if !api.IsTransportError(err) {
			err = api.NewTransportError(c.serverID, "send", err)
		}
		if errors.Is(err, transport.ErrConnectionLost) {
			c.fail(err)
		}
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp == nil {
			c.mu.Lock()
			defer c.mu.Unlock()
			return nil, c.terminalErrLocked()
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		if !c.release(id) {
			// The response or a terminal transition won the race.
			resp := <-ch
			if resp == nil {
				c.mu.Lock()
				defer c.mu.Unlock()
				return nil, c.terminalErrLocked()
			}
			if resp.Error != nil {
				return nil, resp.Error
			}
			return resp.Result, nil
		}
		if method != protocol.MethodInitialize {
			c.cancelRequest(id, ctx.Err())
		}
		return nil, c.contextErr(method, ctx.Err())
	}
}

func (c *Connection) contextErr(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrRequestTimeout, method)
	}
	return err
}

// release removes the pending slot and reports whether it was still there.
func (c *Connection) release(id protocol.RequestID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; ok {
		delete(c.pending, id)
		return true
	}
	return false
}

// cancelRequest tells the server, best effort, that nobody waits for id.
func (c *Connection) cancelRequest(id protocol.RequestID, cause error) {
	reason := "request cancelled"
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = "request timed out"
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err := c.notify(ctx, protocol.NotificationCancelled, protocol.CancelledParams{RequestID: id, Reason: reason})
		if err != nil {
			logging.Debug(subsystem, "Server %s: failed to send cancellation for request %s: %v", c.serverID, id, err)
		}
	}()
}

func (c *Connection) notify(ctx context.Context, method string, params any) error {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := c.t.Send(ctx, data); err != nil {
		if api.IsTransportError(err) {
			return err
		}
		return api.NewTransportError(c.serverID, "send", err)
	}
	return nil
}

func (c *Connection) respond(resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error(subsystem, err, "Server %s: failed to encode response", c.serverID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.t.Send(ctx, data); err != nil {
		logging.Debug(subsystem, "Server %s: failed to send response: %v", c.serverID, err)
	}
}

func (c *Connection) readLoop(ctx context.Context) {
	defer close(c.readerDone)
	for {
		raw, err := c.t.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !api.IsTransportError(err) {
				err = api.NewTransportError(c.serverID, "receive", err)
			}
			c.fail(err)
			return
		}

		msg, err := protocol.ParseMessage(raw)
		if err != nil {
			c.fail(err)
			return
		}

		switch msg.Kind {
		case protocol.KindResponse:
			c.dispatch(msg.Response)
		case protocol.KindNotification:
			c.handleNotification(msg.Notification)
		case protocol.KindRequest:
			go c.handleRequest(msg.Request)
		}
	}
}

func (c *Connection) dispatch(resp *protocol.Response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	} else {
		c.anomalies = append(c.anomalies, Anomaly{
			Time:   time.Now(),
			ID:     resp.ID,
			Reason: "response matches no pending request",
		})
		if len(c.anomalies) > maxAnomalies {
			c.anomalies = c.anomalies[len(c.anomalies)-maxAnomalies:]
		}
	}
	c.mu.Unlock()

	if !ok {
		logging.Warn(subsystem, "Server %s sent a response for unknown request id %s", c.serverID, resp.ID)
		return
	}
	ch <- resp
}

func (c *Connection) handleRequest(req *protocol.Request) {
	if req.Method == protocol.MethodPing {
		resp, err := protocol.NewResultResponse(req.ID, struct{}{})
		if err != nil {
			return
		}
		c.respond(resp)
		return
	}
	logging.Debug(subsystem, "Server %s sent unsupported request %s", c.serverID, req.Method)
	c.respond(protocol.NewErrorResponse(req.ID, protocol.NewMethodNotFound(req.Method)))
}

func (c *Connection) handleNotification(n *protocol.Notification) {
	switch n.Method {
	case protocol.NotificationToolsListChanged:
		c.listChanged(ListTools)
	case protocol.NotificationResourcesListChanged:
		c.listChanged(ListResources)
	case protocol.NotificationPromptsListChanged:
		c.listChanged(ListPrompts)
	case protocol.NotificationMessage:
		c.logServerMessage(n.Params)
	case protocol.NotificationCancelled:
		logging.Debug(subsystem, "Server %s cancelled a request: %s", c.serverID, n.Params)
	default:
		logging.Debug(subsystem, "Server %s sent unhandled notification %s", c.serverID, n.Method)
	}
}

func (c *Connection) listChanged(kind ListKind) {
	c.cache.invalidate(kind)
	logging.Debug(subsystem, "Server %s: %s list changed", c.serverID, kind)
	if c.onListChanged != nil {
		c.onListChanged(kind)
	}
}

func (c *Connection) logServerMessage(params json.RawMessage) {
	var p protocol.LoggingMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		logging.Debug(subsystem, "Server %s sent malformed log message: %v", c.serverID, err)
		return
	}
	name := "Server:" + c.serverID
	if p.Logger != "" {
		name += "/" + p.Logger
	}
	data := string(p.Data)
	var s string
	if json.Unmarshal(p.Data, &s) == nil {
		data = s
	}
	switch p.Level {
	case "debug":
		logging.Debug(name, "%s", data)
	case "info", "notice":
		logging.Info(name, "%s", data)
	case "warning":
		logging.Warn(name, "%s", data)
	default:
		logging.Error(name, nil, "%s", data)
	}
}

// fail moves a live connection to Failed. Terminal states are kept.
func (c *Connection) fail(err error) {
	c.mu.Lock()
	if c.state.IsTerminal() {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	c.failure = err
	c.drainPendingLocked()
	c.mu.Unlock()

	close(c.done)
	logging.Error(subsystem, err, "Connection to server %s failed", c.serverID)
}

func (c *Connection) drainPendingLocked() {
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Connection) stateErrLocked() error {
	switch c.state {
	case StateClosed, StateFailed:
		return c.terminalErrLocked()
	default:
		return fmt.Errorf("%w (state %s)", ErrNotReady, c.state)
	}
}

func (c *Connection) terminalErrLocked() error {
	if c.state == StateFailed && c.failure != nil {
		return c.failure
	}
	return ErrClosed
}

// Close moves the connection to Closed, fails pending requests with
// ErrClosed and closes the transport. A Failed connection keeps its state
// but still releases the transport.
func (c *Connection) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		wasLive := !c.state.IsTerminal()
		if wasLive {
			c.state = StateClosed
			c.drainPendingLocked()
		}
		cancel := c.readerCancel
		readerDone := c.readerDone
		c.mu.Unlock()

		if wasLive {
			close(c.done)
		}
		if cancel != nil {
			cancel()
		}
		err = c.t.Close(ctx)
		if readerDone != nil {
			select {
			case <-readerDone:
			case <-ctx.Done():
			}
		}
	})
	return err
}

// Done is closed when the connection reaches Closed or Failed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure cause of a Failed connection.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// ServerID returns the id given with WithServerID.
func (c *Connection) ServerID() string {
	return c.serverID
}

// ProtocolVersion returns the version agreed during the handshake.
func (c *Connection) ProtocolVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protocolVersion
}

// ServerInfo returns the server's implementation info.
func (c *Connection) ServerInfo() protocol.Implementation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// Capabilities returns the negotiated capability set.
func (c *Connection) Capabilities() protocol.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negotiated
}

// ServerCapabilities returns what the server declared, before negotiation.
func (c *Connection) ServerCapabilities() protocol.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverCaps
}

// Instructions returns the server's optional usage instructions.
func (c *Connection) Instructions() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instructions
}

// Anomalies returns a copy of the recorded unmatched responses.
func (c *Connection) Anomalies() []Anomaly {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Anomaly(nil), c.anomalies...)
}
