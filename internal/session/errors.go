package session

import "errors"

var (
	// ErrClosed is returned for requests on, or pending during, a closed
	// connection.
	ErrClosed = errors.New("connection closed")
	// ErrRequestTimeout is returned when a request outlives its deadline.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrNotReady is returned for operations before the handshake finished.
	ErrNotReady = errors.New("connection not ready")
)
