package gpt

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path/filepath"
	"sort"
)

// Upload is a file part of a multipart request.
type Upload struct {
	Field       string
	Name        string
	Data        []byte
	ContentType string
}

func (u Upload) contentType() string {
	if u.ContentType != "" {
		return u.ContentType
	}
	if ct := mime.TypeByExtension(filepath.Ext(u.Name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// encodeMultipart writes fields in key order followed by the file parts.
func encodeMultipart(fields url.Values, files ...Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", k, err)
			}
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, filepath.Base(f.Name)))
		h.Set("Content-Type", f.contentType())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
