package api

import (
	"errors"
	"fmt"
)

// ConfigError reports malformed or missing server configuration.
type ConfigError struct {
	// ServerID is the offending server, empty for file level problems.
	ServerID string
	Message  string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.ServerID != "" {
		msg = fmt.Sprintf("server %s: %s", e.ServerID, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", msg, e.Err)
	}
	return "config error: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError for the given server.
func NewConfigError(serverID, message string, err error) *ConfigError {
	return &ConfigError{ServerID: serverID, Message: message, Err: err}
}

// TransportError reports a failure to establish or use the byte stream to a
// server: spawn failures, unresolvable commands, dial errors and broken pipes.
type TransportError struct {
	ServerID string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	if e.ServerID != "" {
		return fmt.Sprintf("transport error (%s) for server %s: %v", e.Op, e.ServerID, e.Err)
	}
	return fmt.Sprintf("transport error (%s): %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError creates a TransportError.
func NewTransportError(serverID, op string, err error) *TransportError {
	return &TransportError{ServerID: serverID, Op: op, Err: err}
}

// ProtocolError reports a malformed message, an id mismatch or an
// unsupported protocol version.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Err)
	}
	return "protocol error: " + e.Message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError creates a ProtocolError.
func NewProtocolError(message string, err error) *ProtocolError {
	return &ProtocolError{Message: message, Err: err}
}

// CapabilityError reports an operation attempted without the capability it
// requires having been negotiated with the server.
type CapabilityError struct {
	Method     string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %q not negotiated, cannot call %s", e.Capability, e.Method)
}

// NewCapabilityError creates a CapabilityError.
func NewCapabilityError(method, capability string) *CapabilityError {
	return &CapabilityError{Method: method, Capability: capability}
}

// ServerNotFoundError reports an unknown server id.
type ServerNotFoundError struct {
	ServerID string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("server %s not found", e.ServerID)
}

// NewServerNotFoundError creates a ServerNotFoundError.
func NewServerNotFoundError(serverID string) *ServerNotFoundError {
	return &ServerNotFoundError{ServerID: serverID}
}

// NotConnectedError reports an operation that needs a live connection on a
// server that is not Running.
type NotConnectedError struct {
	ServerID string
	Status   string
}

func (e *NotConnectedError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("server %s is not connected (status: %s)", e.ServerID, e.Status)
	}
	return fmt.Sprintf("server %s is not connected", e.ServerID)
}

// NewNotConnectedError creates a NotConnectedError.
func NewNotConnectedError(serverID, status string) *NotConnectedError {
	return &NotConnectedError{ServerID: serverID, Status: status}
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsTransportError reports whether err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsProtocolError reports whether err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}

// IsCapabilityError reports whether err is or wraps a CapabilityError.
func IsCapabilityError(err error) bool {
	var target *CapabilityError
	return errors.As(err, &target)
}

// IsServerNotFound reports whether err is or wraps a ServerNotFoundError.
//
// Example:
//
//	status, err := mgr.ServerStatus(id)
//	if api.IsServerNotFound(err) {
//	    return fmt.Errorf("no server named %s is configured", id)
//	}
func IsServerNotFound(err error) bool {
	var target *ServerNotFoundError
	return errors.As(err, &target)
}

// IsNotConnected reports whether err is or wraps a NotConnectedError.
func IsNotConnected(err error) bool {
	var target *NotConnectedError
	return errors.As(err, &target)
}
