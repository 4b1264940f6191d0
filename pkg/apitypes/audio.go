package apitypes

import "net/url"

// TranscriptionPayload holds the form fields of POST /audio/transcriptions.
type TranscriptionPayload struct {
	Model                  string   `json:"model"`
	Language               string   `json:"language,omitempty"`
	Prompt                 string   `json:"prompt,omitempty"`
	ResponseFormat         string   `json:"response_format,omitempty"`
	Temperature            *float64 `json:"temperature,omitempty"`
	TimestampGranularities []string `json:"timestamp_granularities,omitempty"`
}

func (p TranscriptionPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "transcription payload")
}

func (p TranscriptionPayload) Fields() url.Values {
	v := url.Values{}
	setIf(v, "model", p.Model)
	setIf(v, "language", p.Language)
	setIf(v, "prompt", p.Prompt)
	setIf(v, "response_format", p.ResponseFormat)
	if p.Temperature != nil {
		v.Set("temperature", formatFloat(*p.Temperature))
	}
	for _, g := range p.TimestampGranularities {
		v.Add("timestamp_granularities[]", g)
	}
	return v
}

// TranslationPayload holds the form fields of POST /audio/translations.
// Translation always targets English, so there is no language field.
type TranslationPayload struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt,omitempty"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

func (p TranslationPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "translation payload")
}

func (p TranslationPayload) Fields() url.Values {
	v := url.Values{}
	setIf(v, "model", p.Model)
	setIf(v, "prompt", p.Prompt)
	setIf(v, "response_format", p.ResponseFormat)
	if p.Temperature != nil {
		v.Set("temperature", formatFloat(*p.Temperature))
	}
	return v
}

// TranscriptionResponse is the json/verbose_json reply of both audio endpoints.
type TranscriptionResponse struct {
	Text     string       `json:"text"`
	Language string       `json:"language,omitempty"`
	Duration float64      `json:"duration,omitempty"`
	Segments []JSONObject `json:"segments,omitempty"`
	Words    []JSONObject `json:"words,omitempty"`
}
