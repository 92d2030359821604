package runtime

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/giantswarm/mcpcore/pkg/logging"
)

const subsystem = "Runtime"

// Source tells where a resolved command was found.
type Source string

const (
	// SourceSystem is an explicit path or a command on the search path.
	SourceSystem Source = "system"
	// SourceManaged is a command from the application managed runtime root.
	SourceManaged Source = "managed"
)

// ResolvedCommand is the outcome of a successful resolution.
type ResolvedCommand struct {
	// Command is what should be executed. For search path and managed
	// matches this is the absolute path.
	Command      string `json:"command"`
	Source       Source `json:"source"`
	ResolvedPath string `json:"resolvedPath,omitempty"`
}

// CommandCapability reports whether a command can be launched and from where.
type CommandCapability struct {
	Command      string `json:"command"`
	Available    bool   `json:"available"`
	Source       Source `json:"source,omitempty"`
	ResolvedPath string `json:"resolvedPath,omitempty"`
}

// DefaultCommands are the well-known commands included in a capability
// snapshot.
var DefaultCommands = []string{"node", "npm", "npx", "python", "python3", "pandoc", "soffice", "pdftoppm"}

// Resolver turns command names into launchable executables. It probes, in
// order, explicit paths, the process search path (augmented by the platform's
// supplemental directories) and the managed runtime root.
//
// Resolver keeps no mutable state of its own and is safe for concurrent use.
type Resolver struct {
	root     string
	platform Platform
	pathEnv  func() string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlatform replaces the platform integration, mainly for tests.
func WithPlatform(p Platform) Option {
	return func(r *Resolver) {
		r.platform = p
	}
}

// WithPathEnv replaces the source of the search path, which defaults to the
// PATH environment variable.
func WithPathEnv(f func() string) Option {
	return func(r *Resolver) {
		r.pathEnv = f
	}
}

// NewResolver creates a resolver for the managed runtime root. An empty root
// disables managed lookup.
func NewResolver(root string, opts ...Option) *Resolver {
	r := &Resolver{
		root:     root,
		platform: DefaultPlatform(),
		pathEnv:  func() string { return os.Getenv("PATH") },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the managed runtime root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve finds an executable for name. The first match wins:
//
//  1. a path-like name is accepted iff it names an existing regular file
//  2. the search path, then the platform supplemental directories
//  3. <root>/<component>/current/<candidate> in the managed runtime root
func (r *Resolver) Resolve(name string) (ResolvedCommand, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ResolvedCommand{}, false
	}

	if IsPathLike(name) {
		return r.resolveExplicit(name)
	}
	if rc, ok := r.resolveSystem(name); ok {
		return rc, true
	}
	return r.resolveManaged(name)
}

// IsPathLike reports whether name should be treated as a path rather than
// looked up: absolute, containing a separator, or starting with a dot.
func IsPathLike(name string) bool {
	return filepath.IsAbs(name) ||
		strings.ContainsAny(name, `/\`) ||
		strings.HasPrefix(name, ".")
}

func (r *Resolver) resolveExplicit(name string) (ResolvedCommand, bool) {
	if !isRegularFile(name) {
		logging.Debug(subsystem, "Explicit command path %s does not exist", name)
		return ResolvedCommand{}, false
	}
	return ResolvedCommand{Command: name, Source: SourceSystem, ResolvedPath: name}, true
}

func (r *Resolver) resolveSystem(name string) (ResolvedCommand, bool) {
	searched := make(map[string]bool)
	primary := filepath.SplitList(r.pathEnv())

	if p, ok := r.findInDirs(name, primary, searched); ok {
		return ResolvedCommand{Command: p, Source: SourceSystem, ResolvedPath: p}, true
	}

	if extra := r.platform.SupplementalPaths(); len(extra) > 0 {
		if p, ok := r.findInDirs(name, extra, searched); ok {
			logging.Debug(subsystem, "Found %s in supplemental path %s", name, p)
			return ResolvedCommand{Command: p, Source: SourceSystem, ResolvedPath: p}, true
		}
	}
	return ResolvedCommand{}, false
}

func (r *Resolver) findInDirs(name string, dirs []string, searched map[string]bool) (string, bool) {
	exts := r.platform.ExecutableExtensions()
	for _, dir := range dirs {
		if dir == "" || searched[dir] {
			continue
		}
		searched[dir] = true

		base := filepath.Join(dir, name)
		if len(exts) == 0 || hasExecutableExtension(name, exts) {
			if isExecutable(base) {
				return base, true
			}
		}
		for _, ext := range exts {
			if isExecutable(base + ext) {
				return base + ext, true
			}
		}
	}
	return "", false
}

func hasExecutableExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func (r *Resolver) resolveManaged(name string) (ResolvedCommand, bool) {
	p, ok := r.findManaged(name)
	if !ok {
		return ResolvedCommand{}, false
	}
	logging.Debug(subsystem, "Resolved %s from managed runtime: %s", name, p)
	return ResolvedCommand{Command: p, Source: SourceManaged, ResolvedPath: p}, true
}

func (r *Resolver) findManaged(name string) (string, bool) {
	if r.root == "" {
		return "", false
	}
	spec, ok := managedSpecs[normalizeAlias(name)]
	if !ok {
		return "", false
	}

	componentRoot := filepath.Join(r.root, spec.component, "current")
	for _, rel := range spec.candidates {
		candidate := filepath.Join(componentRoot, filepath.FromSlash(rel))
		if isRegularFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// CommandCapability reports the availability of a single command.
func (r *Resolver) CommandCapability(name string) CommandCapability {
	rc, ok := r.Resolve(name)
	if !ok {
		return CommandCapability{Command: name}
	}
	return CommandCapability{
		Command:      name,
		Available:    true,
		Source:       rc.Source,
		ResolvedPath: rc.ResolvedPath,
	}
}

// CapabilitiesFor reports the availability of each requested command, in
// request order.
func (r *Resolver) CapabilitiesFor(names []string) []CommandCapability {
	out := make([]CommandCapability, 0, len(names))
	for _, n := range names {
		out = append(out, r.CommandCapability(n))
	}
	return out
}

// Capabilities is the snapshot for DefaultCommands.
func (r *Resolver) Capabilities() []CommandCapability {
	return r.CapabilitiesFor(DefaultCommands)
}

func isRegularFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
