package options

import (
	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

var transcriptFormats = []string{"json", "text", "srt", "verbose_json", "vtt"}

// IsJSONTranscript reports whether an audio response format yields a JSON body.
func IsJSONTranscript(format string) bool {
	return format == "" || format == "json" || format == "verbose_json"
}

type TranscriptionOptions struct {
	Model                  string   `yaml:"model" json:"model,omitempty"`
	Language               string   `yaml:"language" json:"language,omitempty"`
	Prompt                 string   `yaml:"prompt" json:"prompt,omitempty"`
	ResponseFormat         string   `yaml:"response_format" json:"response_format,omitempty"`
	Temperature            float64  `yaml:"temperature" json:"temperature,omitempty"`
	TimestampGranularities []string `yaml:"timestamp_granularities" json:"timestamp_granularities,omitempty"`
}

func DefaultTranscriptionOptions() TranscriptionOptions {
	return TranscriptionOptions{
		Model:          "whisper-1",
		ResponseFormat: "json",
	}
}

func (o TranscriptionOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if err := oneOf("response_format", o.ResponseFormat, transcriptFormats...); err != nil {
		return err
	}
	for _, g := range o.TimestampGranularities {
		if err := oneOf("timestamp_granularities", g, "word", "segment"); err != nil {
			return err
		}
	}
	return inRange("temperature", o.Temperature, 0, 1)
}

func (o TranscriptionOptions) Payload() apitypes.TranscriptionPayload {
	p := apitypes.TranscriptionPayload{
		Model:          o.Model,
		Language:       o.Language,
		Prompt:         o.Prompt,
		ResponseFormat: o.ResponseFormat,
		Temperature:    float(o.Temperature),
	}
	// granularities are only honoured with verbose_json.
	if o.ResponseFormat == "verbose_json" {
		p.TimestampGranularities = cloneStrings(o.TimestampGranularities)
	}
	return p
}

type TranslationOptions struct {
	Model          string  `yaml:"model" json:"model,omitempty"`
	Prompt         string  `yaml:"prompt" json:"prompt,omitempty"`
	ResponseFormat string  `yaml:"response_format" json:"response_format,omitempty"`
	Temperature    float64 `yaml:"temperature" json:"temperature,omitempty"`
}

func DefaultTranslationOptions() TranslationOptions {
	return TranslationOptions{
		Model:          "whisper-1",
		ResponseFormat: "json",
	}
}

func (o TranslationOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if err := oneOf("response_format", o.ResponseFormat, transcriptFormats...); err != nil {
		return err
	}
	return inRange("temperature", o.Temperature, 0, 1)
}

func (o TranslationOptions) Payload() apitypes.TranslationPayload {
	return apitypes.TranslationPayload{
		Model:          o.Model,
		Prompt:         o.Prompt,
		ResponseFormat: o.ResponseFormat,
		Temperature:    float(o.Temperature),
	}
}
