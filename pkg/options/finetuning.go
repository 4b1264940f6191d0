package options

import (
	"fmt"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

type FineTuningOptions struct {
	Model  string `yaml:"model" json:"model,omitempty"`
	Suffix string `yaml:"suffix" json:"suffix,omitempty"`
	Seed   *int   `yaml:"seed" json:"seed,omitempty"`
	// Zero hyperparameters are sent as "auto".
	NEpochs                int     `yaml:"n_epochs" json:"n_epochs,omitempty"`
	BatchSize              int     `yaml:"batch_size" json:"batch_size,omitempty"`
	LearningRateMultiplier float64 `yaml:"learning_rate_multiplier" json:"learning_rate_multiplier,omitempty"`
	ListLimit              int     `yaml:"list_limit" json:"list_limit,omitempty"`
}

func DefaultFineTuningOptions() FineTuningOptions {
	return FineTuningOptions{
		Model:     "gpt-4o-mini-2024-07-18",
		ListLimit: 20,
	}
}

func (o FineTuningOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if len(o.Suffix) > 64 {
		return fmt.Errorf("suffix must be at most 64 characters, got %d", len(o.Suffix))
	}
	if o.NEpochs < 0 || o.NEpochs > 50 {
		return fmt.Errorf("n_epochs must be in [0,50], got %d", o.NEpochs)
	}
	if o.BatchSize < 0 || o.BatchSize > 256 {
		return fmt.Errorf("batch_size must be in [0,256], got %d", o.BatchSize)
	}
	if o.LearningRateMultiplier < 0 {
		return fmt.Errorf("learning_rate_multiplier must be >= 0, got %g", o.LearningRateMultiplier)
	}
	if o.ListLimit < 0 || o.ListLimit > 100 {
		return fmt.Errorf("list_limit must be in [0,100], got %d", o.ListLimit)
	}
	return nil
}

func autoOr[T int | float64](v T) any {
	if v == 0 {
		return "auto"
	}
	return v
}

func (o FineTuningOptions) Payload(trainingFile, validationFile string) (apitypes.FineTuningPayload, error) {
	training := strings.TrimSpace(trainingFile)
	if training == "" {
		return apitypes.FineTuningPayload{}, fmt.Errorf("training file id is empty")
	}
	return apitypes.FineTuningPayload{
		Model:          o.Model,
		TrainingFile:   training,
		ValidationFile: strings.TrimSpace(validationFile),
		Suffix:         o.Suffix,
		Seed:           o.Seed,
		Hyperparameters: &apitypes.Hyperparameters{
			NEpochs:                autoOr(o.NEpochs),
			BatchSize:              autoOr(o.BatchSize),
			LearningRateMultiplier: autoOr(o.LearningRateMultiplier),
		},
	}, nil
}
