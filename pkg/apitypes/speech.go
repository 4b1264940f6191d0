package apitypes

// SpeechPayload is the body of POST /audio/speech. The reply is raw audio.
type SpeechPayload struct {
	Model          string   `json:"model"`
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	Instructions   string   `json:"instructions,omitempty"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
}

func (p SpeechPayload) Data() (JSONObject, error) { return ToJSONObject(p, "speech payload") }
