// Package logging provides the subsystem-oriented logger used throughout mcpcore.
//
// It is a thin layer over Go's standard slog package: every entry carries a
// "subsystem" attribute so output from the resolver, sessions, transports and
// the server manager can be told apart and filtered.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Manager", "Starting server %s", id)
//	logging.Debug("Session", "Dropped response with unknown id %s", id)
//	logging.Error("Transport", err, "Failed to spawn %s", command)
//
// Components that prefer structured key/value logging can obtain a
// subsystem-scoped *slog.Logger through Logger.
//
// # Subsystems
//
//   - Runtime: command resolution and managed runtime lookup
//   - Session: MCP handshake, request correlation, protocol anomalies
//   - Transport: process and HTTP transports
//   - Manager: server lifecycle
//   - Config: configuration loading, validation and watching
//   - Registry: tool registry updates
//   - Containerizer: container runtime launches
//   - CLI: command line front end
//   - Server:<id>: stderr output of a local server
//
// # Thread Safety
//
// All functions are safe for concurrent use. InitForCLI may be called again
// to reconfigure the level or output, for example from tests.
package logging
