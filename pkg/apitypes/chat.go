package apitypes

import "strings"

// ChatMessage is one entry of a chat conversation.
// Content is a string for plain text or a list of content parts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Text returns the textual content of the message, joining text parts.
func (m ChatMessage) Text() string {
	switch t := m.Content.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			obj, _ := p.(map[string]any)
			if obj == nil {
				continue
			}
			if s, ok := obj["text"].(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}

// ResponseFormat selects text, json_object or json_schema output.
type ResponseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONObject `json:"json_schema,omitempty"`
}

// ChatPayload is the body of POST /chat/completions.
type ChatPayload struct {
	Model               string          `json:"model"`
	Messages            []ChatMessage   `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	TopP                *float64        `json:"top_p,omitempty"`
	FrequencyPenalty    *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64        `json:"presence_penalty,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	N                   int             `json:"n,omitempty"`
	Stop                []string        `json:"stop,omitempty"`
	Seed                *int            `json:"seed,omitempty"`
	Store               *bool           `json:"store,omitempty"`
	Stream              bool            `json:"stream,omitempty"`
	ResponseFormat      *ResponseFormat `json:"response_format,omitempty"`
	ReasoningEffort     string          `json:"reasoning_effort,omitempty"`
	User                string          `json:"user,omitempty"`
}

// Data returns the payload as it will be serialized.
func (p ChatPayload) Data() (JSONObject, error) { return ToJSONObject(p, "chat payload") }

// ChatChoice is one generated alternative.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// ChatResponse is the reply of POST /chat/completions.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}
