package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/models"
)

func newAssistantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assistants",
		Aliases: []string{"assistant"},
		Short:   "Manage assistants and ask them questions",
	}
	cmd.AddCommand(
		newAssistantsCreateCmd(a),
		newAssistantsListCmd(a),
		newAssistantsGetCmd(a),
		newAssistantsDeleteCmd(a),
		newAssistantsAskCmd(a),
	)
	return cmd
}

func newAssistantsCreateCmd(a *app) *cobra.Command {
	var (
		model        string
		name         string
		description  string
		instructions string
		tools        []string
		vectorStores []string
		temperature  float64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.Assistant
				set(cmd, "model", &opts.Model, model)
				set(cmd, "name", &opts.Name, name)
				set(cmd, "description", &opts.Description, description)
				set(cmd, "instructions", &opts.Instructions, instructions)
				set(cmd, "tool", &opts.Tools, tools)
				set(cmd, "vector-store", &opts.VectorStoreIDs, vectorStores)
				set(cmd, "temperature", &opts.Temperature, temperature)
				if err := s.catalog.Check(models.KindAssistant, opts.Model); err != nil {
					return nil, err
				}
				return s.client.CreateAssistant(cmd.Context(), opts)
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "assistant model")
	fs.StringVar(&name, "name", "", "assistant name")
	fs.StringVar(&description, "description", "", "assistant description")
	fs.StringVar(&instructions, "instructions", "", "system instructions")
	fs.StringSliceVar(&tools, "tool", nil, "code_interpreter|file_search (repeatable)")
	fs.StringSliceVar(&vectorStores, "vector-store", nil, "vector store id for file_search (repeatable)")
	fs.Float64Var(&temperature, "temperature", 0, "sampling temperature [0,2]")
	return cmd
}

func newAssistantsListCmd(a *app) *cobra.Command {
	var (
		limit int
		after string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assistants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				opts := s.cfg.Defaults.Assistant
				set(cmd, "limit", &opts.ListLimit, limit)
				return s.client.ListAssistants(cmd.Context(), opts, after)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max assistants to return")
	cmd.Flags().StringVar(&after, "after", "", "cursor: list after this assistant id")
	return cmd
}

func newAssistantsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <assistant-id>",
		Short: "Show one assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				return s.client.GetAssistant(cmd.Context(), args[0])
			})
		},
	}
}

func newAssistantsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <assistant-id>",
		Short: "Delete an assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrint(cmd, func(s *session) (any, error) {
				return s.client.DeleteAssistant(cmd.Context(), args[0])
			})
		},
	}
}

func newAssistantsAskCmd(a *app) *cobra.Command {
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "ask <assistant-id> [question...]",
		Short: "Ask an assistant on a new thread and wait for the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := inputText(args[1:], cmd.InOrStdin(), "question")
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.Assistant
				set(cmd, "poll-interval", &opts.PollInterval, poll)
				answer, err := s.client.Ask(cmd.Context(), opts, args[0], question)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&poll, "poll-interval", 0, "delay between run status checks")
	return cmd
}
