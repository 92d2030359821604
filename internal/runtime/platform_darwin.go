//go:build darwin

package runtime

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/mcpcore/pkg/logging"
)

// loginShellTimeout bounds how long a login shell may take to print PATH.
const loginShellTimeout = 5 * time.Second

var wellKnownDarwinDirs = []string{
	"/opt/homebrew/bin",
	"/opt/homebrew/sbin",
	"/usr/local/bin",
	"/usr/local/sbin",
	"/opt/local/bin",
	"/opt/local/sbin",
}

type darwinPlatform struct {
	loginOnce sync.Once
	loginPath []string
}

var sharedDarwinPlatform = &darwinPlatform{}

func defaultPlatform() Platform { return sharedDarwinPlatform }

func (p *darwinPlatform) SupplementalPaths() []string {
	entries := append([]string{}, wellKnownDarwinDirs...)
	entries = append(entries, homebrewNodeBins()...)
	entries = append(entries, p.loginShellPath()...)
	return existingDirs(entries)
}

func (p *darwinPlatform) ExecutableExtensions() []string { return nil }

// loginShellPath asks a login shell for its PATH once per process.
func (p *darwinPlatform) loginShellPath() []string {
	p.loginOnce.Do(func() {
		shells := []string{}
		if sh := strings.TrimSpace(os.Getenv("SHELL")); sh != "" {
			shells = append(shells, sh)
		}
		shells = append(shells, "/bin/zsh", "/bin/bash")

		tried := make(map[string]bool)
		for _, sh := range shells {
			if tried[sh] {
				continue
			}
			tried[sh] = true
			if entries := existingDirs(filepath.SplitList(readLoginShellPath(sh))); len(entries) > 0 {
				p.loginPath = entries
				return
			}
		}
		logging.Debug(subsystem, "No login shell PATH available")
	})
	return p.loginPath
}

func readLoginShellPath(shell string) string {
	ctx, cancel := context.WithTimeout(context.Background(), loginShellTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, shell, "-lc", `printf '%s' "$PATH"`).Output()
	if err != nil {
		logging.Debug(subsystem, "Login shell %s did not report PATH: %v", shell, err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

// homebrewNodeBins lists node and versioned node@N formula bin directories.
func homebrewNodeBins() []string {
	var entries []string
	for _, root := range []string{"/opt/homebrew/opt", "/usr/local/opt"} {
		if !isDir(root) {
			continue
		}
		entries = append(entries, filepath.Join(root, "node", "bin"))

		dirEntries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range dirEntries {
			if strings.HasPrefix(e.Name(), "node@") {
				entries = append(entries, filepath.Join(root, e.Name(), "bin"))
			}
		}
	}
	return entries
}

func existingDirs(paths []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range paths {
		if p == "" || seen[p] || !isDir(p) {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func isExecutable(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}
