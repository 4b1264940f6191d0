package options

import (
	"fmt"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

// maxSpeechInput is the vendor limit on input characters.
const maxSpeechInput = 4096

var (
	speechVoices  = []string{"alloy", "ash", "ballad", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer", "verse"}
	speechFormats = []string{"mp3", "opus", "aac", "flac", "wav", "pcm"}
)

type SpeechOptions struct {
	Model          string  `yaml:"model" json:"model,omitempty"`
	Voice          string  `yaml:"voice" json:"voice,omitempty"`
	Instructions   string  `yaml:"instructions" json:"instructions,omitempty"`
	ResponseFormat string  `yaml:"response_format" json:"response_format,omitempty"`
	Speed          float64 `yaml:"speed" json:"speed,omitempty"`
}

func DefaultSpeechOptions() SpeechOptions {
	return SpeechOptions{
		Model:          "tts-1",
		Voice:          "alloy",
		ResponseFormat: "mp3",
		Speed:          1,
	}
}

func (o SpeechOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if err := oneOf("voice", o.Voice, speechVoices...); err != nil {
		return err
	}
	if err := oneOf("response_format", o.ResponseFormat, speechFormats...); err != nil {
		return err
	}
	return inRange("speed", o.Speed, 0.25, 4)
}

func (o SpeechOptions) Payload(text string) (apitypes.SpeechPayload, error) {
	if strings.TrimSpace(text) == "" {
		return apitypes.SpeechPayload{}, fmt.Errorf("speech input is empty")
	}
	if n := len([]rune(text)); n > maxSpeechInput {
		return apitypes.SpeechPayload{}, fmt.Errorf("speech input exceeds %d characters, got %d", maxSpeechInput, n)
	}
	return apitypes.SpeechPayload{
		Model:          o.Model,
		Input:          text,
		Voice:          o.Voice,
		Instructions:   o.Instructions,
		ResponseFormat: o.ResponseFormat,
		Speed:          float(o.Speed),
	}, nil
}
