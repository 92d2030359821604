package runtime

import (
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	supplemental []string
}

func (f fakePlatform) SupplementalPaths() []string    { return f.supplemental }
func (f fakePlatform) ExecutableExtensions() []string { return nil }

func skipOnWindows(t *testing.T) {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("unix executable bits required")
	}
}

func writeExecutable(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func newTestResolver(root string, path []string, supplemental ...string) *Resolver {
	return NewResolver(root,
		WithPlatform(fakePlatform{supplemental: supplemental}),
		WithPathEnv(func() string { return strings.Join(path, string(os.PathListSeparator)) }),
	)
}

func TestResolve_ExplicitPathWins(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	root := t.TempDir()
	sysDir := t.TempDir()

	explicit := writeExecutable(t, filepath.Join(dir, "node"))
	writeExecutable(t, filepath.Join(sysDir, "node"))
	writeExecutable(t, filepath.Join(root, "node", "current", "bin", "node"))

	r := newTestResolver(root, []string{sysDir})

	rc, ok := r.Resolve(explicit)
	require.True(t, ok)
	assert.Equal(t, SourceSystem, rc.Source)
	assert.Equal(t, explicit, rc.ResolvedPath)
	assert.Equal(t, explicit, rc.Command)
}

func TestResolve_ExplicitPathMissingDoesNotFallBack(t *testing.T) {
	root := t.TempDir()
	writeExecutable(t, filepath.Join(root, "node", "current", "bin", "node"))

	r := newTestResolver(root, nil)

	_, ok := r.Resolve(filepath.Join(t.TempDir(), "node"))
	assert.False(t, ok, "a missing explicit path must not fall back to managed lookup")

	_, ok = r.Resolve("./node")
	assert.False(t, ok)
}

func TestResolve_ExplicitPathMustBeFile(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver("", nil)

	_, ok := r.Resolve(dir)
	assert.False(t, ok)
}

func TestIsPathLike(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"node", false},
		{"python3", false},
		{"/usr/bin/node", true},
		{"bin/node", true},
		{`bin\node.exe`, true},
		{"./server", true},
		{".venv", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPathLike(tt.name), tt.name)
	}
}

func TestResolve_SystemBeforeManaged(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	sysDir := t.TempDir()

	sysNode := writeExecutable(t, filepath.Join(sysDir, "node"))
	writeExecutable(t, filepath.Join(root, "node", "current", "bin", "node"))

	r := newTestResolver(root, []string{sysDir})

	rc, ok := r.Resolve("node")
	require.True(t, ok)
	assert.Equal(t, SourceSystem, rc.Source)
	assert.Equal(t, sysNode, rc.ResolvedPath)
}

func TestResolve_SystemSkipsNonExecutable(t *testing.T) {
	skipOnWindows(t)
	sysDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sysDir, "node"), []byte("x"), 0o644))

	r := newTestResolver("", []string{sysDir})

	_, ok := r.Resolve("node")
	assert.False(t, ok)
}

func TestResolve_SupplementalPathAfterSearchPath(t *testing.T) {
	skipOnWindows(t)
	sysDir := t.TempDir()
	extraDir := t.TempDir()
	extra := writeExecutable(t, filepath.Join(extraDir, "uvx"))

	r := newTestResolver("", []string{sysDir}, extraDir)

	rc, ok := r.Resolve("uvx")
	require.True(t, ok)
	assert.Equal(t, SourceSystem, rc.Source)
	assert.Equal(t, extra, rc.ResolvedPath)

	// The search path still wins when both have the command.
	primary := writeExecutable(t, filepath.Join(sysDir, "uvx"))
	rc, ok = r.Resolve("uvx")
	require.True(t, ok)
	assert.Equal(t, primary, rc.ResolvedPath)
}

func TestResolve_ManagedFallback(t *testing.T) {
	root := t.TempDir()
	managed := writeExecutable(t, filepath.Join(root, "python", "current", "bin", "python3"))

	r := newTestResolver(root, []string{t.TempDir()})

	rc, ok := r.Resolve("python3")
	require.True(t, ok)
	assert.Equal(t, SourceManaged, rc.Source)
	assert.Equal(t, managed, rc.ResolvedPath)
	assert.Equal(t, managed, rc.Command)
	assert.True(t, strings.HasSuffix(rc.ResolvedPath, filepath.Join("bin", "python3")))
}

func TestResolve_ManagedCandidateOrder(t *testing.T) {
	root := t.TempDir()
	current := filepath.Join(root, "python", "current")
	writeExecutable(t, filepath.Join(current, "bin", "python"))
	preferred := writeExecutable(t, filepath.Join(current, "python3"))

	r := newTestResolver(root, nil)

	rc, ok := r.Resolve("python3")
	require.True(t, ok)
	assert.Equal(t, preferred, rc.ResolvedPath)
}

func TestResolve_ManagedWindowsAlias(t *testing.T) {
	root := t.TempDir()
	managed := writeExecutable(t, filepath.Join(root, "python", "current", "python.exe"))

	r := newTestResolver(root, nil)

	rc, ok := r.Resolve("python3.exe")
	require.True(t, ok)
	assert.Equal(t, SourceManaged, rc.Source)
	assert.Equal(t, managed, rc.ResolvedPath)
}

func TestResolve_ManagedComponentMapping(t *testing.T) {
	root := t.TempDir()
	soffice := writeExecutable(t, filepath.Join(root, "office", "current", "program", "soffice"))
	npx := writeExecutable(t, filepath.Join(root, "node", "current", "bin", "npx.cmd"))

	r := newTestResolver(root, nil)

	rc, ok := r.Resolve("soffice")
	require.True(t, ok)
	assert.Equal(t, soffice, rc.ResolvedPath)

	rc, ok = r.Resolve("npx")
	require.True(t, ok)
	assert.Equal(t, npx, rc.ResolvedPath)
}

func TestResolve_UnknownCommand(t *testing.T) {
	root := t.TempDir()
	writeExecutable(t, filepath.Join(root, "node", "current", "bin", "node"))

	r := newTestResolver(root, nil)

	_, ok := r.Resolve("deno")
	assert.False(t, ok)
	_, ok = r.Resolve("   ")
	assert.False(t, ok)
}

func TestCapabilities(t *testing.T) {
	root := t.TempDir()
	writeExecutable(t, filepath.Join(root, "node", "current", "bin", "node"))

	r := newTestResolver(root, nil)

	caps := r.Capabilities()
	require.Len(t, caps, len(DefaultCommands))
	for i, c := range caps {
		assert.Equal(t, DefaultCommands[i], c.Command)
	}

	node := caps[0]
	assert.True(t, node.Available)
	assert.Equal(t, SourceManaged, node.Source)
	assert.NotEmpty(t, node.ResolvedPath)

	pandoc := r.CommandCapability("pandoc")
	assert.False(t, pandoc.Available)
	assert.Empty(t, pandoc.Source)
	assert.Empty(t, pandoc.ResolvedPath)

	some := r.CapabilitiesFor([]string{"pandoc", "node"})
	require.Len(t, some, 2)
	assert.Equal(t, "pandoc", some[0].Command)
	assert.True(t, some[1].Available)
}

func TestResolver_ConcurrentUse(t *testing.T) {
	root := t.TempDir()
	writeExecutable(t, filepath.Join(root, "node", "current", "bin", "node"))
	r := newTestResolver(root, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, ok := r.Resolve("node")
			assert.True(t, ok)
			assert.Equal(t, SourceManaged, rc.Source)
			_ = r.MergedPathEnv("/usr/bin")
		}()
	}
	wg.Wait()
}
