// Package config loads and persists MCP server configuration.
//
// # Server File
//
// The server list lives in a single file, by default
// $XDG_CONFIG_HOME/mcpcore/mcp.json. It holds an array of server definitions:
//
//	[
//	  {
//	    "id": "files",
//	    "name": "Files",
//	    "serverType": "local",
//	    "command": "npx",
//	    "args": ["-y", "@modelcontextprotocol/server-filesystem", "{{ env \"HOME\" }}"],
//	    "enabled": true,
//	    "autoStart": true
//	  }
//	]
//
// YAML is accepted as well; field names are the same. SaveAll writes JSON
// or YAML depending on the file extension. Writes replace the file
// atomically.
//
// Every load and save is validated; problems are collected into
// ValidationErrors and reported as a single api.ConfigError.
//
// # Templates
//
// Argument, environment, URL and header values containing "{{" are
// rendered with text/template and the sprig function library just before a
// server is launched (see Expand). Rendering failures are ConfigErrors.
//
// # Settings
//
// Process wide settings come from MCPCORE_* environment variables (see
// Settings) and can be overridden by command line flags.
//
// # Watching
//
// Watcher reports changes to the server file, debounced, so a long running
// process can pick up new servers without a restart.
package config
