// Package session implements the client side of one MCP session.
//
// A Connection owns a transport.Transport and moves through
//
//	Disconnected -> Initializing -> Ready -> Closed | Failed
//
// Initialize performs the handshake: it offers protocol.LatestProtocolVersion,
// validates the server's answer against protocol.SupportedProtocolVersions and
// stores the field-wise AND of both capability sets. Every later operation is
// gated on that negotiated set before anything is written to the transport.
//
// Requests carry session-unique integer ids. The pending slot is registered
// before the request is written, so a fast response can never race past its
// waiter. Responses whose id matches no pending slot are logged and recorded
// as anomalies; they never fail the connection.
//
// Closed and Failed are terminal. A transport read error or a frame that is
// not valid JSON-RPC moves the connection to Failed and fails every pending
// request with the cause.
package session
