package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/api"
)

func TestParseMessage_Classification(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind MessageKind
		wantErr  bool
	}{
		{
			name:     "request has id and method",
			input:    `{"jsonrpc":"2.0","id":1,"method":"ping"}`,
			wantKind: KindRequest,
		},
		{
			name:     "string id request",
			input:    `{"jsonrpc":"2.0","id":"abc","method":"tools/list","params":{}}`,
			wantKind: KindRequest,
		},
		{
			name:     "response with result",
			input:    `{"jsonrpc":"2.0","id":7,"result":{}}`,
			wantKind: KindResponse,
		},
		{
			name:     "response with error",
			input:    `{"jsonrpc":"2.0","id":7,"error":{"code":-32601,"message":"nope"}}`,
			wantKind: KindResponse,
		},
		{
			name:     "response with null id",
			input:    `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse"}}`,
			wantKind: KindResponse,
		},
		{
			name:     "notification has method only",
			input:    `{"jsonrpc":"2.0","method":"notifications/tools/list_changed"}`,
			wantKind: KindNotification,
		},
		{
			name:    "neither id nor method",
			input:   `{"jsonrpc":"2.0","result":{}}`,
			wantErr: true,
		},
		{
			name:    "response with both result and error",
			input:   `{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}`,
			wantErr: true,
		},
		{
			name:    "response with neither result nor error",
			input:   `{"jsonrpc":"2.0","id":1}`,
			wantErr: true,
		},
		{
			name:    "wrong version",
			input:   `{"jsonrpc":"1.0","id":1,"method":"ping"}`,
			wantErr: true,
		},
		{
			name:    "fractional id",
			input:   `{"jsonrpc":"2.0","id":1.5,"result":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `hello`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, api.IsProtocolError(err), "expected ProtocolError, got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, msg.Kind)
		})
	}
}

func TestParseMessage_Fields(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"jsonrpc":"2.0","id":"req-1","method":"tools/call","params":{"name":"echo"}}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Request)
	assert.Equal(t, NewStringID("req-1"), msg.Request.ID)
	assert.Equal(t, "tools/call", msg.Method())
	assert.JSONEq(t, `{"name":"echo"}`, string(msg.Request.Params))

	msg, err = ParseMessage([]byte(`{"jsonrpc":"2.0","id":3,"error":{"code":-32002,"message":"gone","data":{"uri":"x"}}}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Response)
	assert.Equal(t, NewNumberID(3), msg.Response.ID)
	require.NotNil(t, msg.Response.Error)
	assert.Equal(t, CodeResourceNotFound, msg.Response.Error.Code)
	assert.JSONEq(t, `{"uri":"x"}`, string(msg.Response.Error.Data))
}

func TestRequestID_JSON(t *testing.T) {
	tests := []struct {
		id   RequestID
		json string
	}{
		{NewNumberID(42), `42`},
		{NewStringID("a-b"), `"a-b"`},
		{RequestID{}, `null`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.json, string(data))

		var back RequestID
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, tt.id, back)
	}

	// Distinct kinds never compare equal, so "1" cannot answer 1.
	assert.NotEqual(t, NewNumberID(1), NewStringID("1"))
}

func TestNewRequestAndNotification(t *testing.T) {
	req, err := NewRequest(NewNumberID(1), MethodToolsCall, CallToolParams{Name: "echo"})
	require.NoError(t, err)
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`, string(data))

	n, err := NewNotification(NotificationInitialized, nil)
	require.NoError(t, err)
	data, err = json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, string(data))
}

func TestErrorResponse(t *testing.T) {
	resp := NewErrorResponse(NewNumberID(9), NewMethodNotFound("prompts/get"))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	msg, err := ParseMessage(data)
	require.NoError(t, err)
	require.Equal(t, KindResponse, msg.Kind)
	assert.Equal(t, CodeMethodNotFound, msg.Response.Error.Code)

	code, ok := ErrorCode(msg.Response.Error)
	assert.True(t, ok)
	assert.Equal(t, -32601, code)
}
