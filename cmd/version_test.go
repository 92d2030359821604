package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	original := GetVersion()
	t.Cleanup(func() { SetVersion(original) })

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", GetVersion())
	assert.Equal(t, "1.2.3", versionString())

	SetVersion("")
	assert.Equal(t, "dev", versionString())
}

func TestVersionCommand(t *testing.T) {
	original := GetVersion()
	t.Cleanup(func() { SetVersion(original) })
	SetVersion("0.4.0")

	var buf bytes.Buffer
	c := newVersionCmd()
	c.SetOut(&buf)
	c.Run(c, nil)

	assert.Equal(t, "mcpcore version 0.4.0\n", buf.String())
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{Use: "test", Version: "1.0.0"}
	testCmd.SetVersionTemplate(`{{printf "mcpcore version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "mcpcore version 1.0.0\n", buf.String())
}
