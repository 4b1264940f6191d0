package logx

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFormatRequestLine_OutboundOmitsIP(t *testing.T) {
	ts := time.Date(2026, 1, 26, 17, 44, 22, 0, time.UTC)
	got := FormatRequestLineWithColor(ts, 200, 812*time.Millisecond, "", "POST", "/v1/chat/completions",
		map[string]any{"endpoint": "chat", "model": "gpt-4o", "input_tokens": 12}, false)
	want := `[GPT] 2026/01/26 - 17:44:22 | 200 | 812ms | POST "/v1/chat/completions" | endpoint=chat model=gpt-4o input_tokens=12`
	if got != want {
		t.Fatalf("got=%q\nwant=%q", got, want)
	}
}

func TestFormatRequestLine_WithClientIP(t *testing.T) {
	ts := time.Date(2026, 1, 26, 17, 44, 22, 0, time.UTC)
	got := FormatRequestLineWithColor(ts, 404, time.Millisecond, "127.0.0.1", "GET", "/v1/nope", nil, false)
	if !strings.Contains(got, "| 127.0.0.1 | GET") {
		t.Fatalf("missing client ip: %q", got)
	}
}

func TestFormatFields_TokensLastAndZeroSkipped(t *testing.T) {
	out := formatFields(map[string]any{
		"total_tokens":  30,
		"output_tokens": 0,
		"input_tokens":  10,
		"estimated":     false,
		"cost_total":    0.0,
		"model":         "m",
		"error":         errors.New("boom"),
	})
	if out != `error="boom" model=m input_tokens=10 total_tokens=30` {
		t.Fatalf("got=%q", out)
	}

	out = formatFields(map[string]any{"cost_total": 0.00125, "input_tokens": 5, "estimated": true})
	if out != "input_tokens=5 estimated=true cost_total=0.00125" {
		t.Fatalf("got=%q", out)
	}
}

func TestFormatFields_FloatNoScientificNotation(t *testing.T) {
	out := formatFields(map[string]any{"audio_seconds": 1.2e-06})
	if strings.Contains(out, "e-") {
		t.Fatalf("unexpected scientific notation: %q", out)
	}
	if out != "audio_seconds=0.0000012" {
		t.Fatalf("got=%q", out)
	}
}

func TestColorizeStatusWith(t *testing.T) {
	if got := ColorizeStatusWith(500, false); got != "500" {
		t.Fatalf("got=%q want=500", got)
	}
	if got := ColorizeStatusWith(200, true); !strings.Contains(got, "\x1b[32m") {
		t.Fatalf("expected green, got=%q", got)
	}
}
