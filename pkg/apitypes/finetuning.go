package apitypes

// Hyperparameters values are either "auto" or a number.
type Hyperparameters struct {
	NEpochs                any `json:"n_epochs,omitempty"`
	BatchSize              any `json:"batch_size,omitempty"`
	LearningRateMultiplier any `json:"learning_rate_multiplier,omitempty"`
}

// FineTuningPayload is the body of POST /fine_tuning/jobs.
type FineTuningPayload struct {
	Model           string            `json:"model"`
	TrainingFile    string            `json:"training_file"`
	ValidationFile  string            `json:"validation_file,omitempty"`
	Suffix          string            `json:"suffix,omitempty"`
	Seed            *int              `json:"seed,omitempty"`
	Hyperparameters *Hyperparameters  `json:"hyperparameters,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

func (p FineTuningPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "fine-tuning payload")
}

type FineTuningJob struct {
	ID              string           `json:"id"`
	Object          string           `json:"object"`
	CreatedAt       int64            `json:"created_at"`
	FinishedAt      int64            `json:"finished_at,omitempty"`
	Model           string           `json:"model"`
	FineTunedModel  string           `json:"fine_tuned_model,omitempty"`
	OrganizationID  string           `json:"organization_id,omitempty"`
	Status          string           `json:"status"`
	TrainingFile    string           `json:"training_file"`
	ValidationFile  string           `json:"validation_file,omitempty"`
	ResultFiles     []string         `json:"result_files,omitempty"`
	TrainedTokens   int              `json:"trained_tokens,omitempty"`
	Hyperparameters *Hyperparameters `json:"hyperparameters,omitempty"`
	Error           *ErrorBody       `json:"error,omitempty"`
}

type FineTuningJobList struct {
	ListPage
	Data []FineTuningJob `json:"data"`
}

type FineTuningEvent struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Type      string `json:"type,omitempty"`
}

type FineTuningEventList struct {
	ListPage
	Data []FineTuningEvent `json:"data"`
}
