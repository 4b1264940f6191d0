package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/store"
	"github.com/r9s-ai/gptdesk/internal/tui"
)

func newDumpsCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "dumps",
		Short: "Inspect traffic dump files",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "dump dir (default traffic_dump.dir)")
	resolve := func() (string, error) {
		if d := strings.TrimSpace(dir); d != "" {
			return d, nil
		}
		cfg, err := a.loadConfig()
		if err != nil {
			return "", err
		}
		return cfg.TrafficDump.Dir, nil
	}
	cmd.AddCommand(
		newDumpsListCmd(resolve),
		newDumpsShowCmd(resolve),
		newDumpsViewCmd(resolve),
	)
	return cmd
}

func newDumpsListCmd(resolve func() (string, error)) *cobra.Command {
	var (
		limit  int
		filter store.DumpFilter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dumps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolve()
			if err != nil {
				return err
			}
			dumps, err := store.ListDumpSummaries(store.DumpListOptions{Dir: dir, Limit: limit})
			if err != nil {
				return err
			}
			dumps = store.FilterDumps(dumps, filter)
			w := cmd.OutOrStdout()
			if len(dumps) == 0 {
				_, err = fmt.Fprintf(w, "no dumps in %s\n", dir)
				return err
			}
			for _, d := range dumps {
				if _, err := fmt.Fprintln(w, store.FormatDumpRow(d)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&limit, "limit", 200, "max files to scan")
	fs.StringVar(&filter.Endpoint, "endpoint", "", "only this endpoint, e.g. chat")
	fs.StringVar(&filter.Model, "model", "", "only this model")
	fs.IntVar(&filter.Status, "status", 0, "only this HTTP status")
	fs.BoolVar(&filter.Failed, "failed", false, "only failed calls")
	return cmd
}

func newDumpsShowCmd(resolve func() (string, error)) *cobra.Command {
	var maxBytes int64
	cmd := &cobra.Command{
		Use:   "show <request-id|file>",
		Short: "Print one dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolve()
			if err != nil {
				return err
			}
			path, err := findDump(dir, args[0])
			if err != nil {
				return err
			}
			text, truncated, err := store.ReadDump(path, maxBytes)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if _, err := fmt.Fprint(w, text); err != nil {
				return err
			}
			if truncated {
				_, err = fmt.Fprintf(w, "\n[view truncated at %d bytes]\n", maxBytes)
			}
			return err
		},
	}
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 4<<20, "print at most this many bytes")
	return cmd
}

// findDump matches ref against file names and request ids under dir.
func findDump(dir, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	dumps, err := store.ListDumpSummaries(store.DumpListOptions{Dir: dir, Limit: 2000})
	if err != nil {
		return "", err
	}
	for _, d := range dumps {
		if d.FileName == ref || d.Path == ref || d.RequestID == ref || strings.TrimSuffix(d.FileName, ".log") == ref {
			return d.Path, nil
		}
	}
	return "", fmt.Errorf("no dump %q in %s", ref, dir)
}

func newDumpsViewCmd(resolve func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Browse dumps in the terminal viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolve()
			if err != nil {
				return err
			}
			return tui.RunDumpViewer(dir, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
