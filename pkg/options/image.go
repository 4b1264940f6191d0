package options

import (
	"fmt"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

var (
	imageSizes     = []string{"auto", "256x256", "512x512", "1024x1024", "1792x1024", "1024x1792", "1536x1024", "1024x1536"}
	imageQualities = []string{"auto", "standard", "hd", "low", "medium", "high"}
	imageStyles    = []string{"vivid", "natural"}
)

type ImageOptions struct {
	Model          string `yaml:"model" json:"model,omitempty"`
	N              int    `yaml:"n" json:"n,omitempty"`
	Size           string `yaml:"size" json:"size,omitempty"`
	Quality        string `yaml:"quality" json:"quality,omitempty"`
	Style          string `yaml:"style" json:"style,omitempty"`
	ResponseFormat string `yaml:"response_format" json:"response_format,omitempty"`
	User           string `yaml:"user" json:"user,omitempty"`
}

func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		Model:          "dall-e-3",
		N:              1,
		Size:           "1024x1024",
		Quality:        "standard",
		Style:          "vivid",
		ResponseFormat: "url",
	}
}

func (o ImageOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if err := checkN(o.N); err != nil {
		return err
	}
	if o.N > 10 {
		return fmt.Errorf("n must be <= 10, got %d", o.N)
	}
	if err := oneOf("size", o.Size, imageSizes...); err != nil {
		return err
	}
	if o.Quality != "" {
		if err := oneOf("quality", o.Quality, imageQualities...); err != nil {
			return err
		}
	}
	if o.Style != "" {
		if err := oneOf("style", o.Style, imageStyles...); err != nil {
			return err
		}
	}
	return oneOf("response_format", o.ResponseFormat, "url", "b64_json")
}

// WantsBase64 reports whether replies carry b64_json instead of URLs.
func (o ImageOptions) WantsBase64() bool { return o.ResponseFormat == "b64_json" }

func (o ImageOptions) Payload(prompt string) (apitypes.ImagePayload, error) {
	if strings.TrimSpace(prompt) == "" {
		return apitypes.ImagePayload{}, fmt.Errorf("image prompt is empty")
	}
	return apitypes.ImagePayload{
		Model:          o.Model,
		Prompt:         prompt,
		N:              o.N,
		Size:           o.Size,
		Quality:        o.Quality,
		Style:          o.Style,
		ResponseFormat: o.ResponseFormat,
		User:           o.User,
	}, nil
}

// EditPayload builds the form fields for an image edit. Quality and style do
// not apply to edits.
func (o ImageOptions) EditPayload(prompt string) (apitypes.ImageEditPayload, error) {
	if strings.TrimSpace(prompt) == "" {
		return apitypes.ImageEditPayload{}, fmt.Errorf("image edit prompt is empty")
	}
	return apitypes.ImageEditPayload{
		Model:          o.Model,
		Prompt:         prompt,
		N:              o.N,
		Size:           o.Size,
		ResponseFormat: o.ResponseFormat,
		User:           o.User,
	}, nil
}

func (o ImageOptions) VariationPayload() apitypes.ImageVariationPayload {
	return apitypes.ImageVariationPayload{
		Model:          o.Model,
		N:              o.N,
		Size:           o.Size,
		ResponseFormat: o.ResponseFormat,
		User:           o.User,
	}
}
