package gpt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

var (
	// ErrStreamUnsupported is returned before any I/O when a payload asks for streaming.
	ErrStreamUnsupported = errors.New("streaming responses are not supported")
	// ErrEmptyResponse means a 2xx reply lacked the field the call extracts.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMissingAPIKey is returned by New when no key is configured.
	ErrMissingAPIKey = errors.New("api key is required")
)

// maxErrorBody bounds how much of an unparseable error body is kept.
const maxErrorBody = 512

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Param      string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Type != "" {
		b.WriteString(" type=" + e.Type)
	}
	if e.Code != "" {
		b.WriteString(" code=" + e.Code)
	}
	if e.Param != "" {
		b.WriteString(" param=" + e.Param)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.RequestID != "" {
		b.WriteString(" (request id: " + e.RequestID + ")")
	}
	return b.String()
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func parseAPIError(status int, body []byte, requestID string) *APIError {
	e := &APIError{StatusCode: status, RequestID: requestID}
	var env apitypes.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		e.Type = env.Error.Type
		e.Code = stringify(env.Error.Code)
		e.Param = stringify(env.Error.Param)
		e.Message = strings.TrimSpace(env.Error.Message)
		return e
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	e.Message = msg
	return e
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func emptyResponse(path string) error {
	return fmt.Errorf("%w: %s", ErrEmptyResponse, path)
}
