// Package runtime resolves abstract command names, such as "node" or
// "python3", to launchable executables.
//
// Resolution prefers explicit paths, then the process search path (augmented
// with platform specific directories on systems where GUI launched processes
// see a truncated PATH), then an application managed runtime bundle laid out
// as <root>/<component>/current/...
//
// The package also builds the search path for spawned local servers: every
// managed component's executable directories come first, followed by the
// caller's entries, each directory once.
//
// All operations are filesystem probes. The only cached state is the macOS
// login shell PATH, computed once per process.
package runtime
