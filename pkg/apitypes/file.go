package apitypes

import "net/url"

// FilePurpose defines the allowed purposes for uploaded files.
type FilePurpose string

const (
	FilePurposeAssistants FilePurpose = "assistants"
	FilePurposeBatch      FilePurpose = "batch"
	FilePurposeFineTune   FilePurpose = "fine-tune"
	FilePurposeVision     FilePurpose = "vision"
	FilePurposeUserData   FilePurpose = "user_data"
	FilePurposeEvals      FilePurpose = "evals"
)

// Valid reports whether p is one of the documented purposes.
func (p FilePurpose) Valid() bool {
	switch p {
	case FilePurposeAssistants, FilePurposeBatch, FilePurposeFineTune,
		FilePurposeVision, FilePurposeUserData, FilePurposeEvals:
		return true
	default:
		return false
	}
}

// FileUploadPayload holds the form fields of POST /files.
// The file content travels as the "file" multipart part.
type FileUploadPayload struct {
	Purpose  FilePurpose `json:"purpose"`
	Filename string      `json:"filename,omitempty"`
}

func (p FileUploadPayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "file upload payload")
}

func (p FileUploadPayload) Fields() url.Values {
	v := url.Values{}
	setIf(v, "purpose", string(p.Purpose))
	return v
}

// FileObject represents an uploaded file.
type FileObject struct {
	ID            string      `json:"id"`
	Object        string      `json:"object"`
	Bytes         int64       `json:"bytes"`
	CreatedAt     int64       `json:"created_at"`
	ExpiresAt     int64       `json:"expires_at,omitempty"`
	Filename      string      `json:"filename"`
	Purpose       FilePurpose `json:"purpose"`
	Status        string      `json:"status,omitempty"`
	StatusDetails string      `json:"status_details,omitempty"`
}

// FileList is returned by GET /files.
type FileList struct {
	ListPage
	Data []FileObject `json:"data"`
}
