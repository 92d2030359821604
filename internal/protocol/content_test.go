package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcpcore/internal/api"
)

func TestContentList_Unmarshal(t *testing.T) {
	input := `[
		{"type":"text","text":"hello"},
		{"type":"image","data":"aGk=","mimeType":"image/png"},
		{"type":"audio","data":"aGk=","mimeType":"audio/wav"},
		{"type":"resource_link","uri":"file:///a.txt","name":"a"},
		{"type":"resource","resource":{"uri":"ui://srv/w","mimeType":"text/html","text":"<p/>"}}
	]`

	var list ContentList
	require.NoError(t, json.Unmarshal([]byte(input), &list))
	require.Len(t, list, 5)

	assert.Equal(t, TextContent{Text: "hello"}, list[0])
	assert.Equal(t, ImageContent{Data: "aGk=", MIMEType: "image/png"}, list[1])
	assert.Equal(t, AudioContent{Data: "aGk=", MIMEType: "audio/wav"}, list[2])
	assert.Equal(t, ResourceLinkContent{URI: "file:///a.txt", Name: "a"}, list[3])

	embedded, ok := list[4].(EmbeddedResourceContent)
	require.True(t, ok)
	assert.Equal(t, "<p/>", embedded.Resource.Text)

	assert.Equal(t, "hello", list.Text())
}

func TestContentList_UnknownTypeRejected(t *testing.T) {
	var list ContentList
	err := json.Unmarshal([]byte(`[{"type":"video","data":"x"}]`), &list)
	require.Error(t, err)
	assert.True(t, api.IsProtocolError(err))
}

func TestContent_MarshalIncludesType(t *testing.T) {
	tests := []struct {
		content Content
		want    string
	}{
		{TextContent{Text: "hi"}, `{"type":"text","text":"hi"}`},
		{ImageContent{Data: "d", MIMEType: "image/png"}, `{"type":"image","data":"d","mimeType":"image/png"}`},
		{ResourceLinkContent{URI: "file:///x"}, `{"type":"resource_link","uri":"file:///x"}`},
		{EmbeddedResourceContent{Resource: ResourceContent{URI: "ui://a/b", Text: "t"}}, `{"type":"resource","resource":{"uri":"ui://a/b","text":"t"}}`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.content)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(data))

		back, err := UnmarshalContent(data, false)
		require.NoError(t, err)
		assert.Equal(t, tt.content, back)
	}
}

func TestPromptMessage_LegacyPlainString(t *testing.T) {
	var msg PromptMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"plain {{topic}}"}`), &msg))
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, TextContent{Text: "plain {{topic}}"}, msg.Content)

	// Plain strings are a prompt-only legacy form.
	_, err := UnmarshalContent([]byte(`"plain"`), false)
	assert.Error(t, err)
}

func TestSubstitutePlaceholders(t *testing.T) {
	args := map[string]string{"name": "Ada", "lang": "Go"}

	got := SubstitutePlaceholders(TextContent{Text: "Hi {{name}}, write {{lang}}. {{missing}} {name}"}, args)
	assert.Equal(t, TextContent{Text: "Hi Ada, write Go. {{missing}} {name}"}, got)

	image := ImageContent{Data: "{{name}}", MIMEType: "image/png"}
	assert.Equal(t, image, SubstitutePlaceholders(image, args), "non-text content must be untouched")

	link := ResourceLinkContent{URI: "file:///{{name}}"}
	assert.Equal(t, link, SubstitutePlaceholders(link, args))

	msg := PromptMessage{Role: RoleAssistant, Content: TextContent{Text: "{{lang}}!"}}
	msg.Substitute(args)
	assert.Equal(t, TextContent{Text: "Go!"}, msg.Content)
}
