package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/models"
)

func newModelsCmd(a *app) *cobra.Command {
	var (
		live bool
		kind string
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models, optionally merged with the vendor list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				if k := strings.TrimSpace(kind); k != "" {
					for _, id := range s.catalog.ModelsFor(models.Kind(strings.ToLower(k))) {
						if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
							return err
						}
					}
					return nil
				}
				if !live {
					return printJSON(cmd.OutOrStdout(), s.catalog.ToList())
				}
				list, err := s.client.ListModels(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s.catalog.Merge(list))
			})
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "merge with GET /models from the vendor")
	cmd.Flags().StringVar(&kind, "kind", "", "only catalog models of this kind, e.g. chat or embedding")
	return cmd
}
