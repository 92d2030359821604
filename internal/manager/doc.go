// Package manager owns the lifecycle of every configured MCP server.
//
// Each configured server id has exactly one runtime Status. A server moves
// through Uninitialized, Starting, Running, Stopping and Stopped, or lands in
// Error with the reason retained. Disabled marks configurations that are
// switched off. A live session.Connection exists for an id iff its status is
// Running; Connection returns it and callers treat a missing handle as "not
// usable right now".
//
// Servers are isolated from one another. Start failures are recorded in the
// failing server's status and never abort the start of its siblings.
// Operations on the same id are serialised; operations on different ids run
// concurrently.
//
// The manager also provides the narrow passthrough used by UI glue code:
// Forward accepts only tools/call, resources/read and ping, and
// FetchUIResource only accepts ui:// URIs.
package manager
