package store

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/r9s-ai/gptdesk/pkg/trafficdump"
)

func writeDump(t *testing.T, dir, rid string, status string, reqErr error) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	rec, err := trafficdump.Start(trafficdump.Config{Enabled: true, Dir: dir, FilePath: "{{.request_id}}.log", MaxBytes: 1024, MaskSecrets: true}, rid, "chat", req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rec.Close()
	h := http.Header{"Content-Type": {"application/json"}, "Authorization": {"Bearer sk-secret"}}
	body := []byte(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"hi"}]}`)
	rec.AppendRequest(h, body, int64(len(body)), false)
	if reqErr != nil {
		rec.AppendError(reqErr)
		return rec.Path()
	}
	rec.AppendResponse(status, http.Header{"Content-Type": {"application/json"}}, []byte(`{"choices":[]}`), 14, false)
	return rec.Path()
}

func TestParseDumpSummary_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := writeDump(t, dir, "rid-1", "HTTP/1.1 429 Too Many Requests", nil)

	sum, err := ParseDumpSummary(p, nil)
	if err != nil {
		t.Fatalf("ParseDumpSummary: %v", err)
	}
	if sum.RequestID != "rid-1" || sum.Endpoint != "chat" || sum.Method != http.MethodPost {
		t.Fatalf("meta got=%+v", sum)
	}
	if sum.URLPath != "/v1/chat/completions" {
		t.Fatalf("path got=%q", sum.URLPath)
	}
	if sum.Model != "gpt-4o-mini" {
		t.Fatalf("model got=%q", sum.Model)
	}
	if sum.Status != 429 {
		t.Fatalf("status got=%d", sum.Status)
	}
	if sum.Time.IsZero() {
		t.Fatalf("time should be parsed")
	}
	row := FormatDumpRow(sum)
	if !strings.Contains(row, "status=429") || !strings.Contains(row, "rid=rid-1") {
		t.Fatalf("row got=%q", row)
	}
}

func TestParseDumpSummary_TransportError(t *testing.T) {
	p := writeDump(t, t.TempDir(), "rid-2", "", errors.New("dial tcp: connection refused"))
	sum, err := ParseDumpSummary(p, nil)
	if err != nil {
		t.Fatalf("ParseDumpSummary: %v", err)
	}
	if sum.Status != 0 || !strings.Contains(sum.Error, "connection refused") {
		t.Fatalf("got status=%d error=%q", sum.Status, sum.Error)
	}
	if !(DumpFilter{Failed: true}).Match(sum) {
		t.Fatalf("transport failure should match Failed filter")
	}
}

func TestListDumpSummaries_SortAndFilter(t *testing.T) {
	dir := t.TempDir()
	p1 := writeDump(t, dir, "old", "HTTP/1.1 200 OK", nil)
	p2 := writeDump(t, dir, "new", "HTTP/1.1 500 Internal Server Error", nil)
	old := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(p1, old, old); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(p2, newer, newer); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ListDumpSummaries(DumpListOptions{Dir: dir})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].RequestID != "new" || got[1].RequestID != "old" {
		t.Fatalf("order got=%+v", got)
	}
	failed := FilterDumps(got, DumpFilter{Failed: true})
	if len(failed) != 1 || failed[0].Status != 500 {
		t.Fatalf("failed got=%+v", failed)
	}
	endpoints, models, statuses := DumpUniqueOptions(got)
	if len(endpoints) != 1 || len(models) != 1 || len(statuses) != 2 || statuses[0] != 200 {
		t.Fatalf("unique got=%v %v %v", endpoints, models, statuses)
	}
}

func TestListDumpSummaries_MissingDir(t *testing.T) {
	got, err := ListDumpSummaries(DumpListOptions{Dir: filepath.Join(t.TempDir(), "none")})
	if err != nil || got != nil {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestReadDump_Truncates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.log")
	if err := os.WriteFile(p, []byte("0123456789"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, cut, err := ReadDump(p, 4)
	if err != nil || s != "0123" || !cut {
		t.Fatalf("got=%q cut=%v err=%v", s, cut, err)
	}
}
