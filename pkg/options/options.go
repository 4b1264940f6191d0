// Package options holds per-endpoint request defaults.
//
// Every endpoint has an Options struct with a Default<X>Options constructor,
// a Validate method enforcing vendor ranges, and a Payload builder that turns
// the options plus per-call inputs into the wire DTO from pkg/apitypes.
package options

import (
	"fmt"
	"slices"
	"strings"
)

const maxStopSequences = 4

// Set bundles the options of every endpoint.
// It is the shape of the `defaults` section of the config file.
type Set struct {
	Assistant     AssistantOptions     `yaml:"assistant" json:"assistant,omitempty"`
	Chat          ChatOptions          `yaml:"chat" json:"chat,omitempty"`
	Completion    CompletionOptions    `yaml:"completion" json:"completion,omitempty"`
	Embedding     EmbeddingOptions     `yaml:"embedding" json:"embedding,omitempty"`
	File          FileOptions          `yaml:"file" json:"file,omitempty"`
	FineTuning    FineTuningOptions    `yaml:"fine_tuning" json:"fine_tuning,omitempty"`
	Image         ImageOptions         `yaml:"image" json:"image,omitempty"`
	Speech        SpeechOptions        `yaml:"speech" json:"speech,omitempty"`
	Transcription TranscriptionOptions `yaml:"transcription" json:"transcription,omitempty"`
	Translation   TranslationOptions   `yaml:"translation" json:"translation,omitempty"`
	Vector        VectorOptions        `yaml:"vector" json:"vector,omitempty"`
}

// DefaultSet returns the built-in defaults of every endpoint.
func DefaultSet() Set {
	return Set{
		Assistant:     DefaultAssistantOptions(),
		Chat:          DefaultChatOptions(),
		Completion:    DefaultCompletionOptions(),
		Embedding:     DefaultEmbeddingOptions(),
		File:          DefaultFileOptions(),
		FineTuning:    DefaultFineTuningOptions(),
		Image:         DefaultImageOptions(),
		Speech:        DefaultSpeechOptions(),
		Transcription: DefaultTranscriptionOptions(),
		Translation:   DefaultTranslationOptions(),
		Vector:        DefaultVectorOptions(),
	}
}

// Clone returns a copy of s whose slices share nothing with s.
func (s Set) Clone() Set {
	out := s
	out.Assistant.Tools = cloneStrings(s.Assistant.Tools)
	out.Assistant.VectorStoreIDs = cloneStrings(s.Assistant.VectorStoreIDs)
	out.Chat.Stop = cloneStrings(s.Chat.Stop)
	out.Completion.Stop = cloneStrings(s.Completion.Stop)
	out.Transcription.TimestampGranularities = cloneStrings(s.Transcription.TimestampGranularities)
	return out
}

// Validate checks every endpoint and reports the first failure.
func (s Set) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"assistant", s.Assistant.Validate},
		{"chat", s.Chat.Validate},
		{"completion", s.Completion.Validate},
		{"embedding", s.Embedding.Validate},
		{"file", s.File.Validate},
		{"fine_tuning", s.FineTuning.Validate},
		{"image", s.Image.Validate},
		{"speech", s.Speech.Validate},
		{"transcription", s.Transcription.Validate},
		{"translation", s.Translation.Validate},
		{"vector", s.Vector.Validate},
	}
	for _, c := range checks {
		if err := c.fn(); err != nil {
			return fmt.Errorf("defaults.%s: %w", c.name, err)
		}
	}
	return nil
}

// Sampling holds the knobs shared by the text generation endpoints.
type Sampling struct {
	Temperature      float64 `yaml:"temperature" json:"temperature,omitempty"`
	TopP             float64 `yaml:"top_p" json:"top_p,omitempty"`
	FrequencyPenalty float64 `yaml:"frequency_penalty" json:"frequency_penalty,omitempty"`
	PresencePenalty  float64 `yaml:"presence_penalty" json:"presence_penalty,omitempty"`
}

func (s Sampling) Validate() error {
	if err := inRange("temperature", s.Temperature, 0, 2); err != nil {
		return err
	}
	if err := inRange("top_p", s.TopP, 0, 1); err != nil {
		return err
	}
	if err := inRange("frequency_penalty", s.FrequencyPenalty, -2, 2); err != nil {
		return err
	}
	return inRange("presence_penalty", s.PresencePenalty, -2, 2)
}

func requireModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

func inRange(name string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be in [%g,%g], got %g", name, lo, hi, v)
	}
	return nil
}

func oneOf(name, v string, allowed ...string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%s %q is not one of %s", name, v, strings.Join(allowed, ", "))
}

func checkStops(stop []string) error {
	if len(stop) > maxStopSequences {
		return fmt.Errorf("stop accepts at most %d sequences, got %d", maxStopSequences, len(stop))
	}
	return nil
}

func checkN(n int) error {
	if n < 1 {
		return fmt.Errorf("n must be >= 1, got %d", n)
	}
	return nil
}

func checkMaxTokens(name string, v int) error {
	if v < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", name, v)
	}
	return nil
}

func float(v float64) *float64 { return &v }

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
