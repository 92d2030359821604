package runtime

// Platform isolates the OS specific parts of command resolution so the
// resolution algorithm itself stays OS independent.
type Platform interface {
	// SupplementalPaths are directories probed after the process search path
	// fails. They cover environments with a truncated PATH, such as GUI
	// applications that never ran an interactive shell.
	SupplementalPaths() []string
	// ExecutableExtensions are suffixes tried when probing a directory, for
	// example ".exe" on Windows. Empty on platforms without them.
	ExecutableExtensions() []string
}

// DefaultPlatform returns the implementation for the running OS.
func DefaultPlatform() Platform {
	return defaultPlatform()
}
