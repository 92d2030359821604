package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard JSON-RPC error codes plus the MCP resource extension.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeResourceNotFound = -32002
)

// Error is the JSON-RPC error object. It also implements the error interface
// so server reported failures can travel through ordinary error returns.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func newError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewParseError reports invalid JSON.
func NewParseError(message string) *Error { return newError(CodeParseError, message) }

// NewInvalidRequest reports a structurally invalid request.
func NewInvalidRequest(message string) *Error { return newError(CodeInvalidRequest, message) }

// NewMethodNotFound reports an unknown or unavailable method.
func NewMethodNotFound(method string) *Error {
	return newError(CodeMethodNotFound, fmt.Sprintf("method not found: %s", method))
}

// NewInvalidParams reports invalid method parameters.
func NewInvalidParams(message string) *Error { return newError(CodeInvalidParams, message) }

// NewInternalError reports an internal failure.
func NewInternalError(message string) *Error { return newError(CodeInternalError, message) }

// NewResourceNotFound reports an unknown resource uri.
func NewResourceNotFound(uri string) *Error {
	return newError(CodeResourceNotFound, fmt.Sprintf("resource not found: %s", uri))
}

// WithData attaches data to the error, marshalling it to JSON. Marshalling
// failures leave the error without data.
func (e *Error) WithData(data any) *Error {
	if raw, err := json.Marshal(data); err == nil {
		e.Data = raw
	}
	return e
}

// ErrorCode extracts the JSON-RPC code from err, if err is or wraps an *Error.
func ErrorCode(err error) (int, bool) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}
