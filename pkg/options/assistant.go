package options

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

var assistantTools = []string{"code_interpreter", "file_search"}

type AssistantOptions struct {
	Model          string   `yaml:"model" json:"model,omitempty"`
	Name           string   `yaml:"name" json:"name,omitempty"`
	Description    string   `yaml:"description" json:"description,omitempty"`
	Instructions   string   `yaml:"instructions" json:"instructions,omitempty"`
	Tools          []string `yaml:"tools" json:"tools,omitempty"`
	VectorStoreIDs []string `yaml:"vector_store_ids" json:"vector_store_ids,omitempty"`
	Temperature    float64  `yaml:"temperature" json:"temperature,omitempty"`
	TopP           float64  `yaml:"top_p" json:"top_p,omitempty"`
	// PollInterval is the delay between run status checks while waiting for an answer.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval,omitempty"`
	ListLimit    int           `yaml:"list_limit" json:"list_limit,omitempty"`
}

func DefaultAssistantOptions() AssistantOptions {
	return AssistantOptions{
		Model:        "gpt-4o-mini",
		Name:         "gptdesk",
		Instructions: "You are a helpful assistant.",
		Tools:        []string{"file_search"},
		Temperature:  1,
		TopP:         1,
		PollInterval: time.Second,
		ListLimit:    20,
	}
}

// UnmarshalJSON decodes over the current values. poll_interval takes a
// duration string ("1s", "500ms") or integer nanoseconds.
func (o *AssistantOptions) UnmarshalJSON(b []byte) error {
	type plain AssistantOptions
	aux := struct {
		*plain
		PollInterval json.RawMessage `json:"poll_interval,omitempty"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	raw := bytes.TrimSpace(aux.PollInterval)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	d, err := parseJSONDuration(raw)
	if err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}
	o.PollInterval = d
	return nil
}

func parseJSONDuration(raw []byte) (time.Duration, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return time.ParseDuration(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("want a duration string or integer nanoseconds, got %s", raw)
	}
	return time.Duration(n), nil
}

func (o AssistantOptions) Validate() error {
	if err := requireModel(o.Model); err != nil {
		return err
	}
	if len(o.Name) > 256 {
		return fmt.Errorf("name must be at most 256 characters, got %d", len(o.Name))
	}
	for _, t := range o.Tools {
		if err := oneOf("tool", t, assistantTools...); err != nil {
			return err
		}
	}
	if err := inRange("temperature", o.Temperature, 0, 2); err != nil {
		return err
	}
	if err := inRange("top_p", o.TopP, 0, 1); err != nil {
		return err
	}
	if o.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("poll_interval must be >= 100ms, got %s", o.PollInterval)
	}
	if o.ListLimit < 0 || o.ListLimit > 100 {
		return fmt.Errorf("list_limit must be in [0,100], got %d", o.ListLimit)
	}
	return nil
}

func (o AssistantOptions) tools() []apitypes.Tool {
	out := make([]apitypes.Tool, 0, len(o.Tools))
	for _, t := range o.Tools {
		out = append(out, apitypes.Tool{Type: strings.TrimSpace(t)})
	}
	return out
}

func (o AssistantOptions) Payload() apitypes.AssistantPayload {
	return apitypes.AssistantPayload{
		Model:         o.Model,
		Name:          o.Name,
		Description:   o.Description,
		Instructions:  o.Instructions,
		Tools:         o.tools(),
		ToolResources: apitypes.SearchVectorStores(o.VectorStoreIDs...),
		Temperature:   float(o.Temperature),
		TopP:          float(o.TopP),
	}
}

// MessagePayload builds a user message for a thread.
func (o AssistantOptions) MessagePayload(content string) (apitypes.MessagePayload, error) {
	if strings.TrimSpace(content) == "" {
		return apitypes.MessagePayload{}, fmt.Errorf("message content is empty")
	}
	return apitypes.MessagePayload{Role: "user", Content: content}, nil
}

func (o AssistantOptions) RunPayload(assistantID string) (apitypes.RunPayload, error) {
	id := strings.TrimSpace(assistantID)
	if id == "" {
		return apitypes.RunPayload{}, fmt.Errorf("assistant id is empty")
	}
	return apitypes.RunPayload{AssistantID: id}, nil
}
