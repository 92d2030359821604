package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	runtimeCommands []string
	runtimeShowPath bool
)

// newRuntimeCmd reports which commands can be launched and from where.
func newRuntimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Show which runtime commands are available",
		Long: `Checks the well-known runtime commands (node, npm, npx, python, python3,
pandoc, soffice, pdftoppm) and reports whether each resolves from the
system search path or from the managed runtime bundle.

--command adds further names to check. --path prints the search path
handed to launched servers: the managed bundle directories followed by
the process PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}

			if runtimeShowPath {
				for _, dir := range filepath.SplitList(env.resolver.MergedPathEnv(os.Getenv("PATH"))) {
					fmt.Fprintln(cmd.OutOrStdout(), dir)
				}
				return nil
			}

			caps := env.resolver.Capabilities()
			if len(runtimeCommands) > 0 {
				caps = append(caps, env.resolver.CapabilitiesFor(runtimeCommands)...)
			}
			return env.formatter.FormatCapabilities(caps)
		},
	}
	cmd.Flags().StringSliceVar(&runtimeCommands, "command", nil, "Additional command names to check")
	cmd.Flags().BoolVar(&runtimeShowPath, "path", false, "Print the merged search path instead")
	return cmd
}

func init() {
	rootCmd.AddCommand(newRuntimeCmd())
}
