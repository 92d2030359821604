package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/internal/config"
)

// newConfigCmd groups commands about the server configuration file.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the server configuration",
	}
	cmd.AddCommand(newConfigPathCmd(), newConfigSchemaCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), env.store.Path())
			return err
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return err
		},
	}
}

// newConfigValidateCmd checks a file without launching anything. It exits
// with ExitCodeConfig when the file is invalid.
func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file",
		Long: `Parses and validates the given file, or the configuration file in use,
and reports every problem found. Nothing is launched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				servers []api.ServerConfig
				path    string
			)
			if len(args) == 1 {
				path = args[0]
				data, err := os.ReadFile(path)
				if err != nil {
					return api.NewConfigError("", "failed to read "+path, err)
				}
				if servers, err = config.Parse(data); err != nil {
					return err
				}
			} else {
				env, err := newEnvironment(cmd)
				if err != nil {
					return err
				}
				path = env.store.Path()
				if servers, err = env.store.LoadAll(); err != nil {
					return err
				}
			}

			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d server(s), configuration is valid\n", path, len(servers))
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newConfigCmd())
}
