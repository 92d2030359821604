package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("exec: not found")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config file level", NewConfigError("", "invalid JSON", nil), "config error: invalid JSON"},
		{"config for server", NewConfigError("files", "command is required", nil), "config error: server files: command is required"},
		{"config with cause", NewConfigError("", "failed to read", cause), "config error: failed to read: exec: not found"},
		{"transport", NewTransportError("files", "spawn", cause), "transport error (spawn) for server files: exec: not found"},
		{"transport no server", NewTransportError("", "dial", cause), "transport error (dial): exec: not found"},
		{"protocol", NewProtocolError("id mismatch", nil), "protocol error: id mismatch"},
		{"capability", NewCapabilityError("prompts/list", "prompts"), `capability "prompts" not negotiated, cannot call prompts/list`},
		{"not found", NewServerNotFoundError("files"), "server files not found"},
		{"not connected", NewNotConnectedError("files", "Stopped"), "server files is not connected (status: Stopped)"},
		{"not connected bare", NewNotConnectedError("files", ""), "server files is not connected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestErrorPredicates_SeeThroughWrapping(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("starting server: %w", err) }

	assert.True(t, IsConfigError(wrap(NewConfigError("", "bad", nil))))
	assert.True(t, IsTransportError(wrap(NewTransportError("a", "spawn", nil))))
	assert.True(t, IsProtocolError(wrap(NewProtocolError("bad", nil))))
	assert.True(t, IsCapabilityError(wrap(NewCapabilityError("tools/list", "tools"))))
	assert.True(t, IsServerNotFound(wrap(NewServerNotFoundError("a"))))
	assert.True(t, IsNotConnected(wrap(NewNotConnectedError("a", ""))))

	plain := errors.New("boom")
	assert.False(t, IsConfigError(plain))
	assert.False(t, IsTransportError(plain))
	assert.False(t, IsProtocolError(plain))
	assert.False(t, IsCapabilityError(plain))
	assert.False(t, IsServerNotFound(plain))
	assert.False(t, IsNotConnected(plain))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	assert.ErrorIs(t, NewConfigError("", "x", cause), cause)
	assert.ErrorIs(t, NewTransportError("", "x", cause), cause)
	assert.ErrorIs(t, NewProtocolError("x", cause), cause)
}
