package options

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

type FileOptions struct {
	Purpose string `yaml:"purpose" json:"purpose,omitempty"`
	// ListLimit caps how many files a listing returns. Zero leaves it to the server.
	ListLimit int `yaml:"list_limit" json:"list_limit,omitempty"`
	// MaxUploadBytes rejects larger files before uploading. Zero disables the check.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" json:"max_upload_bytes,omitempty"`
}

func DefaultFileOptions() FileOptions {
	return FileOptions{
		Purpose:        string(apitypes.FilePurposeAssistants),
		ListLimit:      100,
		MaxUploadBytes: 512 << 20,
	}
}

func (o FileOptions) Validate() error {
	if !apitypes.FilePurpose(o.Purpose).Valid() {
		return fmt.Errorf("purpose %q is not a known file purpose", o.Purpose)
	}
	if o.ListLimit < 0 || o.ListLimit > 10000 {
		return fmt.Errorf("list_limit must be in [0,10000], got %d", o.ListLimit)
	}
	if o.MaxUploadBytes < 0 {
		return fmt.Errorf("max_upload_bytes must be >= 0, got %d", o.MaxUploadBytes)
	}
	return nil
}

// Payload builds the upload form fields. filename is reduced to its base name.
func (o FileOptions) Payload(filename string, size int64) (apitypes.FileUploadPayload, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return apitypes.FileUploadPayload{}, fmt.Errorf("file name is empty")
	}
	if o.MaxUploadBytes > 0 && size > o.MaxUploadBytes {
		return apitypes.FileUploadPayload{}, fmt.Errorf("file %s is %d bytes, limit is %d", name, size, o.MaxUploadBytes)
	}
	return apitypes.FileUploadPayload{
		Purpose:  apitypes.FilePurpose(o.Purpose),
		Filename: name,
	}, nil
}
