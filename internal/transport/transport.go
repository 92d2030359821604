package transport

import (
	"context"
	"errors"
)

// Transport moves framed JSON-RPC messages to and from one server. It knows
// nothing about ids or methods; correlation happens in the session layer.
//
// Send may be called concurrently. Receive is called from a single reader
// goroutine. After Close, or once the peer goes away, Receive returns
// ErrClosed, an error wrapping ErrConnectionLost or the underlying read
// error.
type Transport interface {
	// Send writes one complete message.
	Send(ctx context.Context, msg []byte) error
	// Receive blocks for the next complete message.
	Receive(ctx context.Context) ([]byte, error)
	// Close terminates the transport, gracefully first where the transport
	// supports it and forcibly once ctx expires.
	Close(ctx context.Context) error
}

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport closed")

// ErrConnectionLost marks a send failure after which the transport cannot
// carry further messages, such as a refused connection or an expired
// remote session. Receive reports the same error from then on.
var ErrConnectionLost = errors.New("connection lost")
