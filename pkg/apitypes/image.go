package apitypes

import (
	"net/url"
	"strconv"
	"strings"
)

// ImagePayload is the body of POST /images/generations.
type ImagePayload struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}

func (p ImagePayload) Data() (JSONObject, error) { return ToJSONObject(p, "image payload") }

// ImageEditPayload holds the form fields of POST /images/edits.
// The image and mask files travel as multipart parts.
type ImageEditPayload struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}

func (p ImageEditPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "image edit payload")
}

func (p ImageEditPayload) Fields() url.Values {
	v := url.Values{}
	setIf(v, "model", p.Model)
	setIf(v, "prompt", p.Prompt)
	if p.N > 0 {
		v.Set("n", strconv.Itoa(p.N))
	}
	setIf(v, "size", p.Size)
	setIf(v, "response_format", p.ResponseFormat)
	setIf(v, "user", p.User)
	return v
}

// ImageVariationPayload holds the form fields of POST /images/variations.
type ImageVariationPayload struct {
	Model          string `json:"model"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}

func (p ImageVariationPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "image variation payload")
}

func (p ImageVariationPayload) Fields() url.Values {
	v := url.Values{}
	setIf(v, "model", p.Model)
	if p.N > 0 {
		v.Set("n", strconv.Itoa(p.N))
	}
	setIf(v, "size", p.Size)
	setIf(v, "response_format", p.ResponseFormat)
	setIf(v, "user", p.User)
	return v
}

type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

func setIf(v url.Values, key, val string) {
	if s := strings.TrimSpace(val); s != "" {
		v.Set(key, s)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
