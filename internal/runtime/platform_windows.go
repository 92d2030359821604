//go:build windows

package runtime

import (
	"os"
	"strings"
)

type windowsPlatform struct{}

func defaultPlatform() Platform { return windowsPlatform{} }

func (windowsPlatform) SupplementalPaths() []string { return nil }

// ExecutableExtensions follows PATHEXT, defaulting to the classic set.
func (windowsPlatform) ExecutableExtensions() []string {
	pathext := os.Getenv("PATHEXT")
	if pathext == "" {
		return []string{".com", ".exe", ".bat", ".cmd"}
	}
	var exts []string
	for _, e := range strings.Split(strings.ToLower(pathext), ";") {
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}

// isExecutable has no permission bits to check on Windows; the extension
// list already restricts candidates.
func isExecutable(p string) bool {
	return isRegularFile(p)
}
