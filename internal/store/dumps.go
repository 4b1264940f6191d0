// Package store lists and reads traffic dump files written by pkg/trafficdump.
package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/r9s-ai/gptdesk/pkg/trafficdump"
)

type DumpSummary struct {
	Path     string
	FileName string
	ModTime  time.Time
	Size     int64

	Time      time.Time
	RequestID string
	Endpoint  string
	Method    string
	URLPath   string
	Model     string

	Status       int
	Error        string
	HasTruncated bool
}

type DumpListOptions struct {
	Dir   string
	Limit int
}

// DumpFilter keeps summaries matching every non-zero field.
type DumpFilter struct {
	Endpoint string
	Model    string
	Status   int
	// Failed keeps non-2xx and transport failures only.
	Failed bool
}

func (f DumpFilter) Match(d DumpSummary) bool {
	if f.Endpoint != "" && !strings.EqualFold(f.Endpoint, d.Endpoint) {
		return false
	}
	if f.Model != "" && f.Model != d.Model {
		return false
	}
	if f.Status != 0 && f.Status != d.Status {
		return false
	}
	if f.Failed && d.Error == "" && d.Status >= 200 && d.Status < 300 {
		return false
	}
	return true
}

func FilterDumps(dumps []DumpSummary, f DumpFilter) []DumpSummary {
	out := make([]DumpSummary, 0, len(dumps))
	for _, d := range dumps {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// ListDumpSummaries returns the newest dump files first. A missing dir is
// not an error.
func ListDumpSummaries(opts DumpListOptions) ([]DumpSummary, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, errors.New("dump dir is empty")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}

	type fileItem struct {
		path string
		info fs.FileInfo
	}
	var items []fileItem
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".log") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		items = append(items, fileItem{path: path, info: info})
		return nil
	}); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		mi, mj := items[i].info.ModTime(), items[j].info.ModTime()
		if !mi.Equal(mj) {
			return mi.After(mj)
		}
		return items[i].info.Name() > items[j].info.Name()
	})
	if len(items) > limit {
		items = items[:limit]
	}

	out := make([]DumpSummary, 0, len(items))
	for _, it := range items {
		sum, err := ParseDumpSummary(it.path, it.info)
		if err != nil {
			// Keep unreadable files visible with their stats.
			out = append(out, DumpSummary{
				Path:     it.path,
				FileName: it.info.Name(),
				ModTime:  it.info.ModTime(),
				Size:     it.info.Size(),
			})
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}

func ParseDumpSummary(path string, info fs.FileInfo) (DumpSummary, error) {
	sum := DumpSummary{Path: path, FileName: filepath.Base(path)}
	if info != nil {
		sum.ModTime = info.ModTime()
		sum.Size = info.Size()
	}
	f, err := os.Open(path) // #nosec G304 -- reads the configured dump dir.
	if err != nil {
		return DumpSummary{}, err
	}
	defer func() { _ = f.Close() }()

	if err := parseDumpSummaryFromReader(&sum, f); err != nil {
		return DumpSummary{}, err
	}
	if sum.Time.IsZero() {
		sum.Time = sum.ModTime
	}
	return sum, nil
}

func parseDumpSummaryFromReader(sum *DumpSummary, r io.Reader) error {
	br := bufio.NewReader(r)
	section := ""
	// Request and response sections are headers, a blank line, then the body.
	inBody := false
	var reqBody strings.Builder
	reqBodyDone := false

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		t := strings.TrimSpace(trimmed)

		if strings.HasPrefix(t, "=== ") && strings.HasSuffix(t, " ===") {
			section, inBody = t, false
		} else {
			switch section {
			case trafficdump.SectionMeta:
				parseDumpMetaLine(sum, t)
			case trafficdump.SectionRequest:
				switch {
				case !inBody && t == "":
					inBody = true
				case inBody && t == "":
					reqBodyDone = true
				case inBody && !reqBodyDone && reqBody.Len() < 256*1024:
					reqBody.WriteString(trimmed)
					reqBody.WriteByte('\n')
				}
			case trafficdump.SectionResponse:
				if sum.Status == 0 && strings.HasPrefix(t, "HTTP/") {
					if fields := strings.Fields(t); len(fields) >= 2 {
						if n, xerr := strconv.Atoi(fields[1]); xerr == nil {
							sum.Status = n
						}
					}
				}
			case trafficdump.SectionError:
				if t != "" && sum.Error == "" {
					sum.Error = t
				}
			}
			if t == "[truncated]" {
				sum.HasTruncated = true
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	parseDumpRequestBody(sum, reqBody.String())
	return nil
}

func parseDumpMetaLine(sum *DumpSummary, line string) {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	val = strings.TrimSpace(val)
	switch key {
	case "time":
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			sum.Time = ts
		}
	case "request_id":
		sum.RequestID = val
	case "endpoint":
		sum.Endpoint = val
	case "method":
		sum.Method = val
	case "url":
		if u, err := url.Parse(val); err == nil {
			sum.URLPath = u.Path
		}
	}
}

func parseDumpRequestBody(sum *DumpSummary, raw string) {
	body := strings.TrimSpace(raw)
	if body == "" || strings.HasPrefix(body, "[binary body omitted]") || strings.HasPrefix(body, "[base64]") {
		return
	}
	var v struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&v); err != nil {
		return
	}
	sum.Model = strings.TrimSpace(v.Model)
}

// DumpUniqueOptions collects the distinct endpoints, models and statuses,
// sorted, for filter pickers.
func DumpUniqueOptions(dumps []DumpSummary) (endpoints []string, models []string, statuses []int) {
	eset := map[string]struct{}{}
	mset := map[string]struct{}{}
	sset := map[int]struct{}{}
	for _, d := range dumps {
		if v := strings.TrimSpace(d.Endpoint); v != "" {
			eset[v] = struct{}{}
		}
		if v := strings.TrimSpace(d.Model); v != "" {
			mset[v] = struct{}{}
		}
		if d.Status != 0 {
			sset[d.Status] = struct{}{}
		}
	}
	for v := range eset {
		endpoints = append(endpoints, v)
	}
	sort.Strings(endpoints)
	for v := range mset {
		models = append(models, v)
	}
	sort.Strings(models)
	for v := range sset {
		statuses = append(statuses, v)
	}
	sort.Ints(statuses)
	return endpoints, models, statuses
}

func FormatDumpRow(d DumpSummary) string {
	ts := d.Time
	if ts.IsZero() {
		ts = d.ModTime
	}
	timeText := "-"
	if !ts.IsZero() {
		timeText = ts.Format("2006-01-02 15:04:05")
	}
	status := "-"
	if d.Status != 0 {
		status = strconv.Itoa(d.Status)
	} else if d.Error != "" {
		status = "err"
	}
	rid := strings.TrimSpace(d.RequestID)
	if rid == "" {
		rid = strings.TrimSuffix(d.FileName, filepath.Ext(d.FileName))
	}
	return fmt.Sprintf("%s status=%s endpoint=%s model=%s path=%s rid=%s",
		timeText, status, orDash(d.Endpoint), orDash(d.Model), orDash(d.URLPath), rid)
}

// ReadDump returns up to maxBytes of a dump file and whether it was cut.
func ReadDump(path string, maxBytes int64) (string, bool, error) {
	f, err := os.Open(path) // #nosec G304 -- reads the configured dump dir.
	if err != nil {
		return "", false, err
	}
	defer func() { _ = f.Close() }()
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	b, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return "", false, err
	}
	if int64(len(b)) > maxBytes {
		return string(b[:maxBytes]), true, nil
	}
	return string(b), false, nil
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}
