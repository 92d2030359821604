package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mcpcore",
		Long:  `All software has versions. This is mcpcore's.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcpcore version %s\n", rootCmd.Version)
		},
	}
}

// versionString is the version reported to servers during the handshake.
func versionString() string {
	if rootCmd.Version == "" {
		return "dev"
	}
	return rootCmd.Version
}
