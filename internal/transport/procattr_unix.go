//go:build !windows

package transport

import (
	"errors"
	"os/exec"
	"syscall"
)

// configureProcAttr runs the child in its own process group so that kill
// reaches launcher children too, for example node under npx.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the group led by pid, falling back to
// the single process when no such group exists.
func killProcessGroup(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		err = syscall.Kill(pid, syscall.SIGKILL)
	}
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
