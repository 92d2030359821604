//go:build !darwin && !windows

package runtime

import "os"

type unixPlatform struct{}

func defaultPlatform() Platform { return unixPlatform{} }

func (unixPlatform) SupplementalPaths() []string { return nil }

func (unixPlatform) ExecutableExtensions() []string { return nil }

func isExecutable(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}
