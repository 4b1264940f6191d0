package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage uploaded files",
	}
	cmd.AddCommand(
		newFilesUploadCmd(a),
		newFilesListCmd(a),
		newFilesGetCmd(a),
		newFilesDeleteCmd(a),
		newFilesContentCmd(a),
	)
	return cmd
}

func newFilesUploadCmd(a *app) *cobra.Command {
	var purpose string
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// #nosec G304 -- path is given by the operator.
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.File
				set(cmd, "purpose", &opts.Purpose, purpose)
				obj, err := s.client.UploadFile(cmd.Context(), opts, filepath.Base(args[0]), data)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), obj)
			})
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "", "assistants|batch|fine-tune|vision|user_data|evals")
	return cmd
}

func newFilesListCmd(a *app) *cobra.Command {
	var (
		purpose string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.File
				set(cmd, "limit", &opts.ListLimit, limit)
				list, err := s.client.ListFiles(cmd.Context(), opts, strings.TrimSpace(purpose))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "", "only files with this purpose")
	cmd.Flags().IntVar(&limit, "limit", 0, "max files to return")
	return cmd
}

func newFilesGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <file-id>",
		Short: "Show one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				obj, err := s.client.GetFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), obj)
			})
		},
	}
}

func newFilesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				res, err := s.client.DeleteFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newFilesContentCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "content <file-id>",
		Short: "Download file content to stdout or --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				b, err := s.client.FileContent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if strings.TrimSpace(outPath) != "" {
					return os.WriteFile(outPath, b, 0o600)
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write content to this file")
	return cmd
}
