package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/gptdesk/internal/models"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Check and print the effective configuration",
	}
	cmd.AddCommand(newConfigValidateCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config and the models catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := models.Load(cfg.Models.File)
			if err != nil {
				return fmt.Errorf("load models: %w", err)
			}
			src := cfg.Path()
			if src == "" {
				src = "environment"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (models=%d)\n", src, len(catalog.Models()))
			return err
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			out := *cfg
			out.API.APIKey = maskSecret(out.API.APIKey)
			out.Server.APIKey = maskSecret(out.Server.APIKey)
			b, err := yaml.Marshal(&out)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

// maskSecret keeps the last four characters of longer values.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
