package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcpcore/internal/formatting"
	"github.com/giantswarm/mcpcore/internal/manager"
	"github.com/giantswarm/mcpcore/internal/protocol"
)

// newReadUICmd fetches an interactive UI resource.
func newReadUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-ui <server> <ui://uri>",
		Short: "Fetch an interactive UI resource",
		Long: `Reads a ui:// resource from the server and prints its content together with
the CSP and permission metadata it declares. The metadata is shown as
received; mcpcore does not enforce it. Other URI schemes are rejected
before the server is started.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, uri := args[0], args[1]
			if err := protocol.ValidateUIResourceURI(uri); err != nil {
				return fmt.Errorf("%w: %v", manager.ErrInvalidUIResource, err)
			}

			env, err := newEnvironment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			if err := env.startServer(ctx, id); err != nil {
				return err
			}
			result, err := env.manager.FetchUIResource(ctx, id, uri)
			if err != nil {
				return err
			}
			if env.format != formatting.FormatTable {
				return env.formatter.FormatData(result)
			}
			return printUIResource(cmd, result)
		},
	}
}

func printUIResource(cmd *cobra.Command, result *protocol.ReadResourceResult) error {
	w := cmd.OutOrStdout()
	for _, c := range result.Contents {
		fmt.Fprintf(w, "URI:  %s\nType: %s\n", c.URI, c.MIMEType)
		meta, err := c.UIMeta()
		if err != nil {
			return err
		}
		if meta != nil {
			if meta.CSP != nil {
				fmt.Fprintf(w, "CSP:\n%s\n", formatting.PrettyJSON(meta.CSP))
			}
			if meta.Permissions != nil {
				fmt.Fprintf(w, "Permissions:\n%s\n", formatting.PrettyJSON(meta.Permissions))
			}
		}
		switch {
		case c.Text != "":
			fmt.Fprintf(w, "\n%s\n", c.Text)
		case c.Blob != "":
			fmt.Fprintf(w, "\n[binary content, %d base64 characters]\n", len(c.Blob))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newReadUICmd())
}
