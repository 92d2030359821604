package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/giantswarm/mcpcore/internal/api"
)

// JSONRPCVersion is the only JSON-RPC version spoken on the wire.
const JSONRPCVersion = "2.0"

type idKind uint8

const (
	idNull idKind = iota
	idNumber
	idString
)

// RequestID is a JSON-RPC id: an integer or a string. The zero value is the
// JSON null id. RequestID is comparable and can be used as a map key.
type RequestID struct {
	kind idKind
	num  int64
	str  string
}

// NewNumberID returns an integer id.
func NewNumberID(n int64) RequestID {
	return RequestID{kind: idNumber, num: n}
}

// NewStringID returns a string id.
func NewStringID(s string) RequestID {
	return RequestID{kind: idString, str: s}
}

// IsNull reports whether the id is the JSON null id.
func (id RequestID) IsNull() bool {
	return id.kind == idNull
}

// String renders the id for logs.
func (id RequestID) String() string {
	switch id.kind {
	case idNumber:
		return strconv.FormatInt(id.num, 10)
	case idString:
		return strconv.Quote(id.str)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (id RequestID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idNumber:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	case idString:
		return json.Marshal(id.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Fractional numbers are rejected.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = RequestID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NewStringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("JSON-RPC id must be a string or an integer, got %s", data)
	}
	*id = NewNumberID(n)
	return nil
}

// Request is a JSON-RPC request: it carries an id and expects a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request with either Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a one-way message without an id.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request, marshalling params when non-nil.
func NewRequest(id RequestID, method string, params any) (*Request, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Request{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification, marshalling params when non-nil.
func NewNotification(method string, params any) (*Notification, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Notification{JSONRPC: JSONRPCVersion, Method: method, Params: raw}, nil
}

// NewResultResponse builds a successful response.
func NewResultResponse(id RequestID, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id RequestID, rpcErr *Error) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Error: rpcErr}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return raw, nil
}

// MessageKind tags the variant held by a Message.
type MessageKind int

const (
	KindRequest MessageKind = iota + 1
	KindResponse
	KindNotification
)

func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Message is a decoded JSON-RPC message. Exactly one of Request, Response or
// Notification is set, as indicated by Kind.
type Message struct {
	Kind         MessageKind
	Request      *Request
	Response     *Response
	Notification *Notification
}

// Method returns the method of a request or notification.
func (m Message) Method() string {
	switch m.Kind {
	case KindRequest:
		return m.Request.Method
	case KindNotification:
		return m.Notification.Method
	}
	return ""
}

type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// ParseMessage decodes one JSON-RPC message. The variant is selected by
// field presence, in order: id and method make a Request, id without method
// makes a Response, method without id makes a Notification. Anything else is
// a ProtocolError.
func ParseMessage(data []byte) (Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, api.NewProtocolError("malformed JSON-RPC message", err)
	}
	if raw.JSONRPC != JSONRPCVersion {
		return Message{}, api.NewProtocolError(fmt.Sprintf("unsupported jsonrpc version %q", raw.JSONRPC), nil)
	}

	hasID := len(raw.ID) > 0
	hasMethod := raw.Method != nil && *raw.Method != ""

	var id RequestID
	if hasID {
		if err := id.UnmarshalJSON(raw.ID); err != nil {
			return Message{}, api.NewProtocolError("invalid message id", err)
		}
	}

	switch {
	case hasID && hasMethod:
		if id.IsNull() {
			return Message{}, api.NewProtocolError("request id must not be null", nil)
		}
		return Message{Kind: KindRequest, Request: &Request{
			JSONRPC: raw.JSONRPC, ID: id, Method: *raw.Method, Params: raw.Params,
		}}, nil
	case hasID:
		hasResult := len(raw.Result) > 0
		hasError := raw.Error != nil
		if hasResult == hasError {
			return Message{}, api.NewProtocolError("response must carry exactly one of result or error", nil)
		}
		return Message{Kind: KindResponse, Response: &Response{
			JSONRPC: raw.JSONRPC, ID: id, Result: raw.Result, Error: raw.Error,
		}}, nil
	case hasMethod:
		return Message{Kind: KindNotification, Notification: &Notification{
			JSONRPC: raw.JSONRPC, Method: *raw.Method, Params: raw.Params,
		}}, nil
	default:
		return Message{}, api.NewProtocolError("message has neither id nor method", nil)
	}
}
