package options

import (
	"fmt"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

type CompletionOptions struct {
	Model     string `yaml:"model" json:"model,omitempty"`
	Sampling  `yaml:",inline"`
	MaxTokens int      `yaml:"max_tokens" json:"max_tokens,omitempty"`
	N         int      `yaml:"n" json:"n,omitempty"`
	BestOf    int      `yaml:"best_of" json:"best_of,omitempty"`
	Echo      bool     `yaml:"echo" json:"echo,omitempty"`
	Suffix    string   `yaml:"suffix" json:"suffix,omitempty"`
	Stop      []string `yaml:"stop" json:"stop,omitempty"`
	Seed      *int     `yaml:"seed" json:"seed,omitempty"`
	Stream    bool     `yaml:"stream" json:"stream,omitempty"`
	User      string   `yaml:"user" json:"user,omitempty"`
}

func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		Model: "gpt-3.5-turbo-instruct",
		Sampling: Sampling{
			Temperature: 1,
			TopP:        1,
		},
		MaxTokens: 256,
		N:         1,
	}
}

func (o CompletionOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if err := o.Sampling.Validate(); err != nil {
		return err
	}
	if err := checkMaxTokens("max_tokens", o.MaxTokens); err != nil {
		return err
	}
	if err := checkN(o.N); err != nil {
		return err
	}
	if o.BestOf != 0 && o.BestOf < o.N {
		return fmt.Errorf("best_of must be >= n, got best_of=%d n=%d", o.BestOf, o.N)
	}
	return checkStops(o.Stop)
}

func (o CompletionOptions) Payload(prompt string) (apitypes.CompletionPayload, error) {
	if strings.TrimSpace(prompt) == "" {
		return apitypes.CompletionPayload{}, fmt.Errorf("completion prompt is empty")
	}
	return apitypes.CompletionPayload{
		Model:            o.Model,
		Prompt:           prompt,
		Suffix:           o.Suffix,
		MaxTokens:        o.MaxTokens,
		Temperature:      float(o.Temperature),
		TopP:             float(o.TopP),
		FrequencyPenalty: float(o.FrequencyPenalty),
		PresencePenalty:  float(o.PresencePenalty),
		N:                o.N,
		BestOf:           o.BestOf,
		Echo:             o.Echo,
		Stop:             cloneStrings(o.Stop),
		Seed:             o.Seed,
		Stream:           o.Stream,
		User:             o.User,
	}, nil
}
