package options

import (
	"fmt"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

// maxEmbeddingInputs is the vendor limit on inputs per request.
const maxEmbeddingInputs = 2048

type EmbeddingOptions struct {
	Model          string `yaml:"model" json:"model,omitempty"`
	EncodingFormat string `yaml:"encoding_format" json:"encoding_format,omitempty"`
	Dimensions     int    `yaml:"dimensions" json:"dimensions,omitempty"`
	User           string `yaml:"user" json:"user,omitempty"`
}

func DefaultEmbeddingOptions() EmbeddingOptions {
	return EmbeddingOptions{
		Model:          "text-embedding-3-small",
		EncodingFormat: "float",
	}
}

func (o EmbeddingOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	// base64 replies are not decoded into vectors.
	if err := oneOf("encoding_format", o.EncodingFormat, "float"); err != nil {
		return err
	}
	if o.Dimensions < 0 {
		return fmt.Errorf("dimensions must be >= 0, got %d", o.Dimensions)
	}
	return nil
}

func (o EmbeddingOptions) Payload(inputs []string) (apitypes.EmbeddingPayload, error) {
	if len(inputs) == 0 {
		return apitypes.EmbeddingPayload{}, fmt.Errorf("embedding requires at least one input")
	}
	if len(inputs) > maxEmbeddingInputs {
		return apitypes.EmbeddingPayload{}, fmt.Errorf("embedding accepts at most %d inputs, got %d", maxEmbeddingInputs, len(inputs))
	}
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return apitypes.EmbeddingPayload{}, fmt.Errorf("embedding input %d is empty", i)
		}
	}
	return apitypes.EmbeddingPayload{
		Model:          o.Model,
		Input:          cloneStrings(inputs),
		EncodingFormat: o.EncodingFormat,
		Dimensions:     o.Dimensions,
		User:           o.User,
	}, nil
}
