package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/gptdesk/internal/models"
	"github.com/r9s-ai/gptdesk/internal/tui"
	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

type samplingFlags struct {
	temperature float64
	topP        float64
	frequency   float64
	presence    float64
}

func (f *samplingFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.temperature, "temperature", 0, "sampling temperature [0,2]")
	fs.Float64Var(&f.topP, "top-p", 0, "nucleus sampling [0,1]")
	fs.Float64Var(&f.frequency, "frequency-penalty", 0, "frequency penalty [-2,2]")
	fs.Float64Var(&f.presence, "presence-penalty", 0, "presence penalty [-2,2]")
}

func (f *samplingFlags) apply(cmd *cobra.Command, s *options.Sampling) {
	set(cmd, "temperature", &s.Temperature, f.temperature)
	set(cmd, "top-p", &s.TopP, f.topP)
	set(cmd, "frequency-penalty", &s.FrequencyPenalty, f.frequency)
	set(cmd, "presence-penalty", &s.PresencePenalty, f.presence)
}

func newChatCmd(a *app) *cobra.Command {
	var (
		model     string
		system    string
		maxTokens int
		jsonOut   bool
		effort    string
		interact  bool
		rawReply  bool
		sampling  samplingFlags
	)
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send a chat message, or open the terminal chat with --tui",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.Chat
				set(cmd, "model", &opts.Model, model)
				set(cmd, "system", &opts.SystemPrompt, system)
				set(cmd, "max-tokens", &opts.MaxCompletionTokens, maxTokens)
				set(cmd, "reasoning-effort", &opts.ReasoningEffort, effort)
				if jsonOut {
					opts.ResponseFormat = "json_object"
				}
				sampling.apply(cmd, &opts.Sampling)
				if err := s.catalog.Check(models.KindChat, opts.Model); err != nil {
					return err
				}

				if interact {
					send := func(ctx context.Context, msgs []apitypes.ChatMessage) (string, error) {
						return s.client.Chat(ctx, opts, msgs)
					}
					timeout := time.Duration(s.cfg.API.TimeoutMs) * time.Millisecond
					return tui.RunChat(send, opts.Model, timeout, cmd.InOrStdin(), cmd.OutOrStdout())
				}

				text, err := inputText(args, cmd.InOrStdin(), "message")
				if err != nil {
					return err
				}
				msgs := []apitypes.ChatMessage{{Role: "user", Content: text}}
				if rawReply {
					resp, err := s.client.ChatRaw(cmd.Context(), opts, msgs)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), resp)
				}
				reply, err := s.client.Chat(cmd.Context(), opts, msgs)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
				return err
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "chat model")
	fs.StringVar(&system, "system", "", "system prompt")
	fs.IntVar(&maxTokens, "max-tokens", 0, "max completion tokens")
	fs.BoolVar(&jsonOut, "json", false, "ask for a JSON object reply")
	fs.StringVar(&effort, "reasoning-effort", "", "minimal|low|medium|high for reasoning models")
	fs.BoolVar(&interact, "tui", false, "open the terminal chat")
	fs.BoolVar(&rawReply, "raw", false, "print the whole reply as JSON")
	sampling.bind(cmd)
	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	var (
		model     string
		maxTokens int
		suffix    string
		echo      bool
		sampling  samplingFlags
	)
	cmd := &cobra.Command{
		Use:   "complete [prompt...]",
		Short: "Run a legacy text completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := inputText(args, cmd.InOrStdin(), "prompt")
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.Completion
				set(cmd, "model", &opts.Model, model)
				set(cmd, "max-tokens", &opts.MaxTokens, maxTokens)
				set(cmd, "suffix", &opts.Suffix, suffix)
				set(cmd, "echo", &opts.Echo, echo)
				sampling.apply(cmd, &opts.Sampling)
				if err := s.catalog.Check(models.KindCompletion, opts.Model); err != nil {
					return err
				}
				text, err := s.client.Complete(cmd.Context(), opts, prompt)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "completion model")
	fs.IntVar(&maxTokens, "max-tokens", 0, "max tokens")
	fs.StringVar(&suffix, "suffix", "", "text after the completion")
	fs.BoolVar(&echo, "echo", false, "echo the prompt")
	sampling.bind(cmd)
	return cmd
}

func newEmbedCmd(a *app) *cobra.Command {
	var (
		model      string
		dimensions int
	)
	cmd := &cobra.Command{
		Use:   "embed <text>...",
		Short: "Embed each argument and print the vectors as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				opts := s.cfg.Defaults.Embedding
				set(cmd, "model", &opts.Model, model)
				set(cmd, "dimensions", &opts.Dimensions, dimensions)
				if err := s.catalog.Check(models.KindEmbedding, opts.Model); err != nil {
					return err
				}
				vecs, err := s.client.Embed(cmd.Context(), opts, args)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), vecs)
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&model, "model", "m", "", "embedding model")
	fs.IntVar(&dimensions, "dimensions", 0, "output dimensions (text-embedding-3 models)")
	return cmd
}
