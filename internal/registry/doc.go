// Package registry keeps the tools of running servers under qualified
// names of the form mcp__<server>__<tool>.
//
// A Registry is created once by the caller and handed to the components
// that need it; there is no package level instance. The manager registers a
// server's tools when it reaches Running and removes them when it stops or
// fails. Consumers resolve a qualified name back to the owning server.
package registry
