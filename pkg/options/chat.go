package options

import (
	"fmt"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

type ChatOptions struct {
	Model               string `yaml:"model" json:"model,omitempty"`
	SystemPrompt        string `yaml:"system_prompt" json:"system_prompt,omitempty"`
	Sampling            `yaml:",inline"`
	MaxCompletionTokens int      `yaml:"max_completion_tokens" json:"max_completion_tokens,omitempty"`
	N                   int      `yaml:"n" json:"n,omitempty"`
	Stop                []string `yaml:"stop" json:"stop,omitempty"`
	Seed                *int     `yaml:"seed" json:"seed,omitempty"`
	Store               bool     `yaml:"store" json:"store,omitempty"`
	Stream              bool     `yaml:"stream" json:"stream,omitempty"`
	ResponseFormat      string   `yaml:"response_format" json:"response_format,omitempty"`
	ReasoningEffort     string   `yaml:"reasoning_effort" json:"reasoning_effort,omitempty"`
	User                string   `yaml:"user" json:"user,omitempty"`
}

func DefaultChatOptions() ChatOptions {
	return ChatOptions{
		Model: "gpt-4o-mini",
		Sampling: Sampling{
			Temperature: 1,
			TopP:        1,
		},
		MaxCompletionTokens: 4096,
		N:                   1,
		ResponseFormat:      "text",
	}
}

func (o ChatOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if err := o.Sampling.Validate(); err != nil {
		return err
	}
	if err := checkMaxTokens("max_completion_tokens", o.MaxCompletionTokens); err != nil {
		return err
	}
	if err := checkN(o.N); err != nil {
		return err
	}
	if err := checkStops(o.Stop); err != nil {
		return err
	}
	if err := oneOf("response_format", o.ResponseFormat, "text", "json_object"); err != nil {
		return err
	}
	if o.ReasoningEffort != "" {
		if err := oneOf("reasoning_effort", o.ReasoningEffort, "minimal", "low", "medium", "high"); err != nil {
			return err
		}
	}
	return nil
}

// Payload builds the chat request. A configured system prompt is prepended
// unless messages already start with a system or developer message.
func (o ChatOptions) Payload(messages []apitypes.ChatMessage) (apitypes.ChatPayload, error) {
	if len(messages) == 0 {
		return apitypes.ChatPayload{}, fmt.Errorf("chat requires at least one message")
	}
	msgs := make([]apitypes.ChatMessage, 0, len(messages)+1)
	if o.SystemPrompt != "" && messages[0].Role != "system" && messages[0].Role != "developer" {
		msgs = append(msgs, apitypes.ChatMessage{Role: "system", Content: o.SystemPrompt})
	}
	msgs = append(msgs, messages...)

	p := apitypes.ChatPayload{
		Model:               o.Model,
		Messages:            msgs,
		Temperature:         float(o.Temperature),
		TopP:                float(o.TopP),
		FrequencyPenalty:    float(o.FrequencyPenalty),
		PresencePenalty:     float(o.PresencePenalty),
		MaxCompletionTokens: o.MaxCompletionTokens,
		N:                   o.N,
		Stop:                cloneStrings(o.Stop),
		Seed:                o.Seed,
		Stream:              o.Stream,
		ReasoningEffort:     o.ReasoningEffort,
		User:                o.User,
	}
	if o.Store {
		p.Store = apitypes.Bool(true)
	}
	if o.ResponseFormat != "" && o.ResponseFormat != "text" {
		p.ResponseFormat = &apitypes.ResponseFormat{Type: o.ResponseFormat}
	}
	return p, nil
}
