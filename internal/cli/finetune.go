package cli

import (
	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/models"
)

func newFineTuneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "finetune",
		Aliases: []string{"fine-tuning"},
		Short:   "Manage fine-tuning jobs",
	}
	cmd.AddCommand(
		newFineTuneCreateCmd(a),
		newFineTuneListCmd(a),
		newFineTuneGetCmd(a),
		newFineTuneCancelCmd(a),
		newFineTuneEventsCmd(a),
	)
	return cmd
}

func newFineTuneCreateCmd(a *app) *cobra.Command {
	var (
		model      string
		suffix     string
		validation string
		epochs     int
		batchSize  int
		lrMult     float64
	)
	cmd := &cobra.Command{
		Use:   "create <training-file-id>",
		Short: "Start a fine-tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.FineTuning
				set(cmd, "model", &opts.Model, model)
				set(cmd, "suffix", &opts.Suffix, suffix)
				set(cmd, "epochs", &opts.NEpochs, epochs)
				set(cmd, "batch-size", &opts.BatchSize, batchSize)
				set(cmd, "learning-rate-multiplier", &opts.LearningRateMultiplier, lrMult)
				if err := s.catalog.Check(models.KindFineTuning, opts.Model); err != nil {
					return nil, err
				}
				return s.client.CreateFineTuningJob(cmd.Context(), opts, args[0], validation)
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "base model")
	fs.StringVar(&suffix, "suffix", "", "suffix of the fine-tuned model name")
	fs.StringVar(&validation, "validation-file", "", "validation file id")
	fs.IntVar(&epochs, "epochs", 0, "epochs (0 = auto)")
	fs.IntVar(&batchSize, "batch-size", 0, "batch size (0 = auto)")
	fs.Float64Var(&lrMult, "learning-rate-multiplier", 0, "learning rate multiplier (0 = auto)")
	return cmd
}

func newFineTuneListCmd(a *app) *cobra.Command {
	var (
		limit int
		after string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fine-tuning jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.FineTuning
				set(cmd, "limit", &opts.ListLimit, limit)
				return s.client.ListFineTuningJobs(cmd.Context(), opts, after)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max jobs to return")
	cmd.Flags().StringVar(&after, "after", "", "cursor: list after this job id")
	return cmd
}

func newFineTuneGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one fine-tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				return s.client.GetFineTuningJob(cmd.Context(), args[0])
			})
		},
	}
}

func newFineTuneCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a fine-tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				return s.client.CancelFineTuningJob(cmd.Context(), args[0])
			})
		},
	}
}

func newFineTuneEventsCmd(a *app) *cobra.Command {
	var (
		limit int
		after string
	)
	cmd := &cobra.Command{
		Use:   "events <job-id>",
		Short: "List the events of a fine-tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.FineTuning
				set(cmd, "limit", &opts.ListLimit, limit)
				return s.client.ListFineTuningEvents(cmd.Context(), opts, args[0], after)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max events to return")
	cmd.Flags().StringVar(&after, "after", "", "cursor: list after this event id")
	return cmd
}
