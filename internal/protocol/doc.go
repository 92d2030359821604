// Package protocol is the MCP wire model: the JSON-RPC 2.0 envelope, the
// error object and its code taxonomy, capability descriptors and their
// negotiation, and the tool, resource and prompt schema types including the
// closed content block union.
//
// The package is pure data plus parsing and validation; it performs no I/O.
//
// # Message classification
//
// ParseMessage selects the variant by field presence in priority order:
//
//   - id and method: Request
//   - id without method: Response
//   - method without id: Notification
//
// Any other shape is rejected with an api.ProtocolError instead of being
// guessed at.
//
// # Content
//
// Content blocks are one of TextContent, ImageContent, AudioContent,
// ResourceLinkContent or EmbeddedResourceContent. Prompt messages written by
// older servers may carry a bare string, which decodes as TextContent.
package protocol
