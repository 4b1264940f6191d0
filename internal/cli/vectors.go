package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/pkg/options"
)

type vectorFlags struct {
	expiresDays  int
	chunkSize    int
	chunkOverlap int
	limit        int
}

func (f *vectorFlags) bindChunking(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.chunkSize, "chunk-size", 0, "static chunk size in tokens [100,4096]")
	fs.IntVar(&f.chunkOverlap, "chunk-overlap", 0, "static chunk overlap in tokens")
}

func (f *vectorFlags) apply(cmd *cobra.Command, o *options.VectorOptions) {
	set(cmd, "expires-after-days", &o.ExpiresAfterDays, f.expiresDays)
	set(cmd, "chunk-size", &o.MaxChunkSizeTokens, f.chunkSize)
	set(cmd, "chunk-overlap", &o.ChunkOverlapTokens, f.chunkOverlap)
	set(cmd, "limit", &o.ListLimit, f.limit)
}

func newVectorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vectors",
		Aliases: []string{"vector-stores"},
		Short:   "Manage vector stores",
	}
	cmd.AddCommand(
		newVectorsCreateCmd(a),
		newVectorsListCmd(a),
		newVectorsGetCmd(a),
		newVectorsModifyCmd(a),
		newVectorsDeleteCmd(a),
		newVectorsAddFileCmd(a),
		newVectorsFilesCmd(a),
		newVectorsRemoveFileCmd(a),
	)
	return cmd
}

// runPrint opens a session, runs fn and prints its result as JSON.
func (a *app) runPrint(cmd *cobra.Command, fn func(s *session) (any, error)) error {
	return a.withSession(func(s *session) error {
		v, err := fn(s)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	})
}

func newVectorsCreateCmd(a *app) *cobra.Command {
	var (
		f       vectorFlags
		fileIDs []string
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.Vector
				f.apply(cmd, &opts)
				return s.client.CreateVectorStore(cmd.Context(), opts, args[0], fileIDs)
			})
		},
	}
	cmd.Flags().StringSliceVar(&fileIDs, "file-id", nil, "file to index (repeatable)")
	cmd.Flags().IntVar(&f.expiresDays, "expires-after-days", 0, "expire after this many idle days")
	f.bindChunking(cmd)
	return cmd
}

func newVectorsListCmd(a *app) *cobra.Command {
	var (
		f     vectorFlags
		after string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vector stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.Vector
				f.apply(cmd, &opts)
				return s.client.ListVectorStores(cmd.Context(), opts, after)
			})
		},
	}
	cmd.Flags().IntVar(&f.limit, "limit", 0, "max stores to return")
	cmd.Flags().StringVar(&after, "after", "", "cursor: list after this store id")
	return cmd
}

func newVectorsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <store-id>",
		Short: "Show one vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				return s.client.GetVectorStore(cmd.Context(), args[0])
			})
		},
	}
}

func newVectorsModifyCmd(a *app) *cobra.Command {
	var (
		f    vectorFlags
		name string
	)
	cmd := &cobra.Command{
		Use:   "modify <store-id>",
		Short: "Rename a vector store or change its expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("name") && !cmd.Flags().Changed("expires-after-days") {
				return errors.New("nothing to change: pass --name or --expires-after-days")
			}
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.Vector
				f.apply(cmd, &opts)
				return s.client.ModifyVectorStore(cmd.Context(), opts, args[0], name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().IntVar(&f.expiresDays, "expires-after-days", 0, "expire after this many idle days")
	return cmd
}

func newVectorsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <store-id>",
		Short: "Delete a vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				return s.client.DeleteVectorStore(cmd.Context(), args[0])
			})
		},
	}
}

func newVectorsAddFileCmd(a *app) *cobra.Command {
	var f vectorFlags
	cmd := &cobra.Command{
		Use:   "add-file <store-id> <file-id>",
		Short: "Attach an uploaded file to a vector store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.Vector
				f.apply(cmd, &opts)
				return s.client.AddVectorStoreFile(cmd.Context(), opts, args[0], args[1])
			})
		},
	}
	f.bindChunking(cmd)
	return cmd
}

func newVectorsFilesCmd(a *app) *cobra.Command {
	var (
		f     vectorFlags
		after string
	)
	cmd := &cobra.Command{
		Use:   "files <store-id>",
		Short: "List the files of a vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.Vector
				f.apply(cmd, &opts)
				return s.client.ListVectorStoreFiles(cmd.Context(), opts, args[0], after)
			})
		},
	}
	cmd.Flags().IntVar(&f.limit, "limit", 0, "max files to return")
	cmd.Flags().StringVar(&after, "after", "", "cursor: list after this file id")
	return cmd
}

func newVectorsRemoveFileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-file <store-id> <file-id>",
		Short: "Detach a file from a vector store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				return s.client.RemoveVectorStoreFile(cmd.Context(), args[0], args[1])
			})
		},
	}
}
