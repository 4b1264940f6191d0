package apitypes

import (
	"encoding/json"
	"fmt"
)

// JSONObject is a generic JSON object used as a typed boundary in pkg APIs.
type JSONObject map[string]any

// ParseJSONObject parses bytes into a JSON object.
func ParseJSONObject(b []byte, what string) (JSONObject, error) {
	var obj any
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("parse %s json: %w", what, err)
	}
	root, _ := obj.(map[string]any)
	if root == nil {
		return nil, fmt.Errorf("%s json is not an object", what)
	}
	return JSONObject(root), nil
}

// ToJSONObject serializes v and parses it back, yielding exactly the keys that go on the wire.
func ToJSONObject(v any, what string) (JSONObject, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", what, err)
	}
	return ParseJSONObject(b, what)
}

// Marshal marshals the object to JSON bytes.
func (o JSONObject) Marshal() ([]byte, error) {
	return json.Marshal(map[string]any(o))
}

// Usage is the token accounting block returned by completion-style endpoints.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
	InputTokens      int `json:"input_tokens,omitempty"`
	OutputTokens     int `json:"output_tokens,omitempty"`
}

// ErrorBody is the vendor error object.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Param   any    `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// ErrorEnvelope wraps ErrorBody the way non-2xx replies carry it.
type ErrorEnvelope struct {
	Error *ErrorBody `json:"error"`
}

// DeleteResponse is returned by DELETE endpoints.
type DeleteResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// ListPage carries the cursor fields shared by paginated lists.
type ListPage struct {
	Object  string `json:"object"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

// Float returns a pointer to v, for optional numeric payload fields.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
