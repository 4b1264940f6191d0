package cli

import (
	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run(cmd.Context(), a.configPath(), watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload when the config file changes")
	return cmd
}
