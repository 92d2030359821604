package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoConfig = `
name: echo
tools:
  - name: echo
    input_schema:
      type: object
      properties:
        message:
          type: string
          default: "hi"
    responses:
      - condition:
          message: "fail"
        error: "refusing {{ .message }}"
      - condition:
          count: 2
        response:
          doubled: "{{ .message }}{{ .message }}"
      - response: "echo: {{ .message | upper }}"
`

func TestToolHandler_Responses(t *testing.T) {
	cfg, err := ParseConfig([]byte(echoConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Tools, 1)
	h := NewToolHandler(cfg.Tools[0])
	ctx := context.Background()

	t.Run("default argument and sprig function", func(t *testing.T) {
		got, err := h.HandleCall(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "echo: HI", got)
	})

	t.Run("condition with loose numeric match", func(t *testing.T) {
		got, err := h.HandleCall(ctx, map[string]interface{}{"message": "ab", "count": float64(2)})
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"doubled": "abab"}, got)
	})

	t.Run("configured error", func(t *testing.T) {
		_, err := h.HandleCall(ctx, map[string]interface{}{"message": "fail"})
		var failed *ErrToolFailed
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, "refusing fail", failed.Message)
	})
}

func TestParseConfig_DefaultsName(t *testing.T) {
	cfg, err := ParseConfig([]byte("tools: []"))
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Name)
}
