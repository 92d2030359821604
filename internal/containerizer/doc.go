// Package containerizer launches containerised MCP servers.
//
// A container server is a regular stdio server whose process is the
// container runtime CLI in attached mode:
//
//	docker run -i --rm --name mcpcore-<id>-<suffix> -e KEY=VALUE <image> <args...>
//
// The manager resolves the runtime binary like any other command and talks
// to the container over the CLI's stdin and stdout. Once the process exits
// the container is removed again with "rm -f" in case the runtime left it
// behind. Docker and Podman accept the same flags.
package containerizer
