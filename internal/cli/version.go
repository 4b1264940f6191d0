package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/version"
)

func newVersionCmd() *cobra.Command {
	var (
		short   bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			switch {
			case jsonOut:
				return printJSON(cmd.OutOrStdout(), info)
			case short:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			default:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return err
			}
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print the version only")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")
	return cmd
}
