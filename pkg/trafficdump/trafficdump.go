// Package trafficdump writes one plain-text file per outbound API call.
//
// A dump file has the sections META, REQUEST, RESPONSE and, when the call
// failed below HTTP, ERROR. Secrets in headers and query strings are masked
// when MaskSecrets is on.
package trafficdump

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"
)

const (
	SectionMeta     = "=== META ==="
	SectionRequest  = "=== REQUEST ==="
	SectionResponse = "=== RESPONSE ==="
	SectionError    = "=== ERROR ==="
)

var imageB64FieldRegex = regexp.MustCompile(`"(b64_json|image|mask)"\s*:\s*"[^"]*"`)

type Config struct {
	Enabled     bool
	Dir         string
	FilePath    string
	MaxBytes    int
	MaskSecrets bool
}

type Recorder struct {
	mu       sync.Mutex
	f        *os.File
	path     string
	maxBytes int
	mask     bool
	closed   bool
}

// Start creates the dump file for one call and writes its META section.
//
// Template variables for cfg.FilePath:
//   - {{.request_id}}
//   - {{.endpoint}}
func Start(cfg Config, requestID string, endpoint string, req *http.Request) (*Recorder, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("request is nil")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("traffic_dump.dir is empty")
	}
	if strings.TrimSpace(cfg.FilePath) == "" {
		return nil, errors.New("traffic_dump.file_path is empty")
	}
	if cfg.MaxBytes < 0 {
		return nil, errors.New("traffic_dump.max_bytes must be non-negative")
	}
	rid := strings.TrimSpace(requestID)
	if rid == "" {
		return nil, errors.New("request id is empty")
	}

	tmpl, err := template.New("path").Parse(cfg.FilePath)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{"request_id": rid, "endpoint": endpoint}); err != nil {
		return nil, err
	}

	dir := strings.TrimSpace(cfg.Dir)
	path := filepath.Join(dir, buf.String())
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	// #nosec G304 -- path is derived from configured dump dir and template.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		f:        f,
		path:     path,
		maxBytes: cfg.MaxBytes,
		mask:     cfg.MaskSecrets,
	}
	r.writeLine(SectionMeta)
	r.writeLine("time=" + time.Now().Format(time.RFC3339))
	r.writeLine("request_id=" + rid)
	if endpoint != "" {
		r.writeLine("endpoint=" + endpoint)
	}
	r.writeLine("method=" + req.Method)
	r.writeLine("url=" + maskURLIfNeeded(req.URL.String(), r.mask))
	r.writeLine("")
	return r, nil
}

// Path returns the dump file location.
func (r *Recorder) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

func (r *Recorder) MaxBytes() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxBytes
}

func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	_ = r.f.Close()
}

// AppendRequest writes the outbound headers and body. size is the full body
// length, which may exceed len(body) when the capture was cut at MaxBytes.
func (r *Recorder) AppendRequest(headers http.Header, body []byte, size int64, truncated bool) {
	if r == nil {
		return
	}
	r.writeLine(SectionRequest)
	r.writeSection(headers, body, size, truncated)
}

// AppendResponse writes the status line, headers and captured body of a reply.
func (r *Recorder) AppendResponse(status string, headers http.Header, body []byte, size int64, truncated bool) {
	if r == nil {
		return
	}
	r.writeLine(SectionResponse)
	r.writeLine(status)
	r.writeSection(headers, body, size, truncated)
}

// AppendError records a transport failure.
func (r *Recorder) AppendError(err error) {
	if r == nil || err == nil {
		return
	}
	r.writeLine(SectionError)
	r.writeLine(err.Error())
	r.writeLine("")
}

func (r *Recorder) writeSection(headers http.Header, body []byte, size int64, truncated bool) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			r.writeLine(fmt.Sprintf("  %s: %s", k, maskIfNeeded(k, v, r.mask)))
		}
	}
	r.writeLine("")

	ct := headers.Get("Content-Type")
	if omitBody(ct) {
		summary := fmt.Sprintf("[binary body omitted] content_type=%s content_length=%d", ct, size)
		r.writeBlock([]byte(summary), false, false)
		return
	}
	binary := isBinaryByContentType(ct) && len(body) > 0
	if !binary {
		body = redactImageBase64Fields(body)
	}
	r.writeBlock(body, binary, truncated)
}

func (r *Recorder) writeLine(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	_, _ = r.f.WriteString(s)
	_, _ = r.f.WriteString("\n")
}

func (r *Recorder) writeBlock(content []byte, binary bool, truncated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if binary {
		_, _ = r.f.WriteString("[base64]\n")
		_, _ = r.f.WriteString(base64.StdEncoding.EncodeToString(content))
		_, _ = r.f.WriteString("\n")
	} else if len(content) > 0 {
		_, _ = r.f.Write(content)
		if content[len(content)-1] != '\n' {
			_, _ = r.f.WriteString("\n")
		}
	}
	if truncated {
		_, _ = r.f.WriteString("[truncated]\n")
	}
	_, _ = r.f.WriteString("\n")
}

func maskIfNeeded(key, val string, on bool) string {
	if !on {
		return val
	}
	lk := strings.ToLower(key)
	if strings.Contains(lk, "authorization") ||
		strings.Contains(lk, "api-key") ||
		lk == "openai-organization" ||
		lk == "openai-project" ||
		lk == "cookie" ||
		lk == "set-cookie" ||
		strings.Contains(lk, "token") {
		return "[REDACTED]"
	}
	return val
}

func maskURLIfNeeded(rawURL string, on bool) string {
	if !on {
		return rawURL
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if len(q) == 0 {
		return rawURL
	}
	changed := false
	for k := range q {
		lk := strings.ToLower(strings.TrimSpace(k))
		if lk == "key" || lk == "api_key" || lk == "apikey" ||
			strings.Contains(lk, "token") || strings.Contains(lk, "secret") {
			q.Set(k, "[REDACTED]")
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isBinaryByContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return false
	}
	return !strings.Contains(ct, "json") && !strings.HasPrefix(ct, "text/")
}

// omitBody reports whether a body is a file upload that is not worth keeping.
func omitBody(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "multipart/form-data")
}

func redactImageBase64Fields(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	return imageB64FieldRegex.ReplaceAllFunc(body, func(m []byte) []byte {
		s := string(m)
		idx := strings.Index(s, ":")
		if idx < 0 {
			return []byte(`"[REDACTED]"`)
		}
		return []byte(s[:idx+1] + `"[[OMITTED]]"`)
	})
}

// LimitBytes cuts b to max bytes. A non-positive max captures nothing.
func LimitBytes(b []byte, max int) (out []byte, truncated bool) {
	if max <= 0 {
		return nil, len(b) > 0
	}
	if len(b) <= max {
		return b, false
	}
	return b[:max], true
}
