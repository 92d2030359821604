//go:build !windows

package transport

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillProcessGroup_ReachesChildren(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// The shell backgrounds a sleep that would outlive a plain kill.
	cmd := exec.Command("sh", "-c", "sleep 30 & wait")
	configureProcAttr(cmd)
	require.NoError(t, cmd.Start())

	require.NoError(t, killProcessGroup(cmd.Process.Pid))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("process group was not killed")
	}
}

func TestKillProcessGroup_AlreadyGone(t *testing.T) {
	cmd := exec.Command("true")
	configureProcAttr(cmd)
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Wait())

	assert.NoError(t, killProcessGroup(cmd.Process.Pid))
}
