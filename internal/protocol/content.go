package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/giantswarm/mcpcore/internal/api"
)

// ContentType discriminates content blocks on the wire.
type ContentType string

const (
	ContentTypeText         ContentType = "text"
	ContentTypeImage        ContentType = "image"
	ContentTypeAudio        ContentType = "audio"
	ContentTypeResourceLink ContentType = "resource_link"
	ContentTypeResource     ContentType = "resource"
)

// Content is a content block. The set of implementations is closed: the
// unexported marker method keeps other packages from adding variants.
type Content interface {
	Type() ContentType
	isContent()
}

// TextContent is a plain text block.
type TextContent struct {
	Text        string       `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ImageContent is a base64 encoded image.
type ImageContent struct {
	Data        string       `json:"data"`
	MIMEType    string       `json:"mimeType"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// AudioContent is base64 encoded audio.
type AudioContent struct {
	Data        string       `json:"data"`
	MIMEType    string       `json:"mimeType"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ResourceLinkContent points at a resource the client may fetch with
// resources/read.
type ResourceLinkContent struct {
	URI         string       `json:"uri"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	MIMEType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// EmbeddedResourceContent inlines the contents of a resource.
type EmbeddedResourceContent struct {
	Resource    ResourceContent `json:"resource"`
	Annotations *Annotations    `json:"annotations,omitempty"`
}

func (TextContent) Type() ContentType             { return ContentTypeText }
func (ImageContent) Type() ContentType            { return ContentTypeImage }
func (AudioContent) Type() ContentType            { return ContentTypeAudio }
func (ResourceLinkContent) Type() ContentType     { return ContentTypeResourceLink }
func (EmbeddedResourceContent) Type() ContentType { return ContentTypeResource }

func (TextContent) isContent()             {}
func (ImageContent) isContent()            {}
func (AudioContent) isContent()            {}
func (ResourceLinkContent) isContent()     {}
func (EmbeddedResourceContent) isContent() {}

func (c TextContent) MarshalJSON() ([]byte, error) {
	type alias TextContent
	return marshalTyped(ContentTypeText, alias(c))
}

func (c ImageContent) MarshalJSON() ([]byte, error) {
	type alias ImageContent
	return marshalTyped(ContentTypeImage, alias(c))
}

func (c AudioContent) MarshalJSON() ([]byte, error) {
	type alias AudioContent
	return marshalTyped(ContentTypeAudio, alias(c))
}

func (c ResourceLinkContent) MarshalJSON() ([]byte, error) {
	type alias ResourceLinkContent
	return marshalTyped(ContentTypeResourceLink, alias(c))
}

func (c EmbeddedResourceContent) MarshalJSON() ([]byte, error) {
	type alias EmbeddedResourceContent
	return marshalTyped(ContentTypeResource, alias(c))
}

// marshalTyped encodes v, a JSON object, with the "type" discriminator
// spliced in as the first member.
func marshalTyped(t ContentType, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head := fmt.Sprintf(`{"type":%q`, string(t))
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}

// UnmarshalContent decodes a single content block. When allowPlain is set a
// bare JSON string is accepted as TextContent, which is how older servers
// encode prompt message content.
func UnmarshalContent(data []byte, allowPlain bool) (Content, error) {
	data = bytes.TrimSpace(data)
	if allowPlain && len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, api.NewProtocolError("invalid plain content", err)
		}
		return TextContent{Text: s}, nil
	}

	var head struct {
		Type ContentType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, api.NewProtocolError("invalid content block", err)
	}

	var (
		c   Content
		err error
	)
	switch head.Type {
	case ContentTypeText:
		var v TextContent
		err = json.Unmarshal(data, (*textAlias)(&v))
		c = v
	case ContentTypeImage:
		var v ImageContent
		err = json.Unmarshal(data, (*imageAlias)(&v))
		c = v
	case ContentTypeAudio:
		var v AudioContent
		err = json.Unmarshal(data, (*audioAlias)(&v))
		c = v
	case ContentTypeResourceLink:
		var v ResourceLinkContent
		err = json.Unmarshal(data, (*resourceLinkAlias)(&v))
		c = v
	case ContentTypeResource:
		var v EmbeddedResourceContent
		err = json.Unmarshal(data, (*embeddedAlias)(&v))
		c = v
	default:
		return nil, api.NewProtocolError(fmt.Sprintf("unknown content type %q", head.Type), nil)
	}
	if err != nil {
		return nil, api.NewProtocolError(fmt.Sprintf("invalid %s content", head.Type), err)
	}
	return c, nil
}

// Alias types decode without recursing into the MarshalJSON methods above
// and ignore the "type" discriminator.
type (
	textAlias         TextContent
	imageAlias        ImageContent
	audioAlias        AudioContent
	resourceLinkAlias ResourceLinkContent
	embeddedAlias     EmbeddedResourceContent
)

// ContentList is a list of content blocks as found in tool results.
type ContentList []Content

// UnmarshalJSON implements json.Unmarshaler.
func (l *ContentList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return api.NewProtocolError("content must be an array", err)
	}
	out := make(ContentList, 0, len(raws))
	for _, raw := range raws {
		c, err := UnmarshalContent(raw, false)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*l = out
	return nil
}

// Text concatenates the text blocks of the list, separated by newlines.
func (l ContentList) Text() string {
	var parts []string
	for _, c := range l {
		if t, ok := c.(TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// SubstitutePlaceholders replaces every literal "{{key}}" with args[key].
// Only text-bearing content changes; every other variant is returned as is.
// Keys are applied in sorted order so the result is deterministic when
// values themselves contain placeholders.
func SubstitutePlaceholders(c Content, args map[string]string) Content {
	t, ok := c.(TextContent)
	if !ok || len(args) == 0 {
		return c
	}
	t.Text = substitute(t.Text, args)
	return t
}

func substitute(s string, args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s = strings.ReplaceAll(s, "{{"+k+"}}", args[k])
	}
	return s
}
