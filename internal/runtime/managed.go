package runtime

import (
	"os"
	"path/filepath"
	"strings"
)

type managedSpec struct {
	component  string
	candidates []string
}

// managedSpecs maps a normalised command to its component directory and the
// relative candidates tried in order below <root>/<component>/current.
var managedSpecs = map[string]managedSpec{
	"node": {"node", []string{"node", "node.exe", "bin/node", "bin/node.exe"}},
	"npm":  {"node", []string{"npm", "npm.cmd", "bin/npm", "bin/npm.cmd"}},
	"npx":  {"node", []string{"npx", "npx.cmd", "bin/npx", "bin/npx.cmd"}},
	"python": {"python", []string{
		"python", "python.exe", "bin/python", "bin/python.exe",
		"bin/python3", "bin/python3.exe",
	}},
	"python3": {"python", []string{
		"python3", "python3.exe", "bin/python3", "bin/python3.exe",
		"python", "python.exe", "bin/python", "bin/python.exe",
	}},
	"pandoc": {"pandoc", []string{"pandoc", "pandoc.exe", "bin/pandoc", "bin/pandoc.exe"}},
	"soffice": {"office", []string{
		"soffice", "soffice.exe", "bin/soffice", "bin/soffice.exe",
		"program/soffice", "program/soffice.exe",
	}},
	"pdftoppm": {"poppler", []string{
		"pdftoppm", "pdftoppm.exe", "bin/pdftoppm", "bin/pdftoppm.exe",
		"Library/bin/pdftoppm.exe",
	}},
}

// managedComponents is the fixed order in which component directories are
// contributed to the merged search path.
var managedComponents = []string{"node", "python", "pandoc", "office", "poppler"}

// componentPathEntries are the directories of a component, relative to its
// current directory, that hold executables.
var componentPathEntries = map[string][]string{
	"node":    {"", "bin"},
	"python":  {"", "bin", "Scripts"},
	"pandoc":  {"", "bin"},
	"office":  {"", "program", "bin"},
	"poppler": {"", "bin", "Library/bin"},
}

func normalizeAlias(name string) string {
	n := strings.ToLower(name)
	switch n {
	case "node.exe":
		return "node"
	case "npm.cmd", "npm.exe":
		return "npm"
	case "npx.cmd", "npx.exe":
		return "npx"
	case "python.exe":
		return "python"
	case "python3.exe":
		return "python3"
	case "pandoc.exe":
		return "pandoc"
	case "soffice.exe":
		return "soffice"
	case "pdftoppm.exe":
		return "pdftoppm"
	}
	return n
}

// ManagedPathEntries lists the existing executable directories of every
// managed component, deduplicated, in component order.
func (r *Resolver) ManagedPathEntries() []string {
	if r.root == "" {
		return nil
	}

	var entries []string
	seen := make(map[string]bool)
	for _, component := range managedComponents {
		componentRoot := filepath.Join(r.root, component, "current")
		if !isDir(componentRoot) {
			continue
		}
		for _, rel := range componentPathEntries[component] {
			candidate := componentRoot
			if rel != "" {
				candidate = filepath.Join(componentRoot, filepath.FromSlash(rel))
			}
			if !seen[candidate] && isDir(candidate) {
				seen[candidate] = true
				entries = append(entries, candidate)
			}
		}
	}
	return entries
}

// MergedPathEnv returns a search path with every managed entry first,
// followed by the entries of existing. Empty entries are dropped and every
// directory appears once, at its first position.
func (r *Resolver) MergedPathEnv(existing string) string {
	return MergePathLists(r.ManagedPathEntries(), filepath.SplitList(existing))
}

// MergePathLists joins the given lists with the OS list separator, keeping
// the first occurrence of each non-empty entry.
func MergePathLists(lists ...[]string) string {
	var merged []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, p := range list {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			merged = append(merged, p)
		}
	}
	return strings.Join(merged, string(os.PathListSeparator))
}
