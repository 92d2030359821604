// Package api holds the types shared by every layer of mcpcore: the server
// configuration model and the error taxonomy.
//
// # Error taxonomy
//
//   - ConfigError: malformed or missing configuration
//   - TransportError: spawn or dial failure, including "command not resolvable"
//   - ProtocolError: malformed message, id mismatch, unsupported version
//   - CapabilityError: operation attempted without a negotiated capability
//   - ServerNotFoundError: unknown server id
//   - NotConnectedError: operation attempted while the server is not Running
//
// Errors stay typed inside the core and are matched with errors.As through
// the Is* helpers. Only the command line layer flattens them to strings.
package api
