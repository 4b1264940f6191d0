package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/options"
	"github.com/r9s-ai/gptdesk/pkg/requestid"
	"github.com/r9s-ai/gptdesk/pkg/trafficdump"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test"}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func userMessages(text string) []apitypes.ChatMessage {
	return []apitypes.ChatMessage{{Role: "user", Content: text}}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("got=%v want=%v", err, ErrMissingAPIKey)
	}
	if _, err := New(Config{APIKey: "k", BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected invalid base url error")
	}
	c, err := New(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("base url got=%s want=%s", c.BaseURL(), DefaultBaseURL)
	}
	if c.hc.Timeout != DefaultTimeout {
		t.Fatalf("timeout got=%s want=%s", c.hc.Timeout, DefaultTimeout)
	}
}

func TestChat_SendsHeadersAndExtractsContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization got=%q", got)
		}
		if got := r.Header.Get("OpenAI-Organization"); got != "org-1" {
			t.Errorf("organization got=%q", got)
		}
		if got := r.Header.Get("OpenAI-Project"); got != "proj-1" {
			t.Errorf("project got=%q", got)
		}
		if got := r.Header.Get(requestid.HeaderKey); got != "rid-42" {
			t.Errorf("request id got=%q", got)
		}
		if r.Header.Get(betaHeader) != "" {
			t.Errorf("chat should not send %s", betaHeader)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["model"] != "gpt-4o-mini" {
			t.Errorf("model got=%v", body["model"])
		}
		if _, ok := body["stream"]; ok {
			t.Errorf("stream should be omitted")
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "chatcmpl-1",
			"choices": []any{
				map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": "hello back"}},
			},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
		})
	}, func(cfg *Config) {
		cfg.Organization = "org-1"
		cfg.Project = "proj-1"
	})

	ctx := requestid.WithID(context.Background(), "rid-42")
	got, err := c.Chat(ctx, options.DefaultChatOptions(), userMessages("hello"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "hello back" {
		t.Fatalf("got=%q want=%q", got, "hello back")
	}
}

func TestChatRaw_DecodesUsage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-2",
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "x"}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4},
		})
	})
	resp, err := c.ChatRaw(context.Background(), options.DefaultChatOptions(), userMessages("hi"))
	if err != nil {
		t.Fatalf("ChatRaw: %v", err)
	}
	if resp.ID != "chatcmpl-2" || resp.Usage == nil || resp.Usage.TotalTokens != 4 {
		t.Fatalf("got=%+v", resp)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Fatalf("finish_reason got=%q", resp.Choices[0].FinishReason)
	}
}

func TestChat_StreamRejectedBeforeIO(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	opts := options.DefaultChatOptions()
	opts.Stream = true
	_, err := c.Chat(context.Background(), opts, userMessages("hi"))
	if !errors.Is(err, ErrStreamUnsupported) {
		t.Fatalf("got=%v want=%v", err, ErrStreamUnsupported)
	}
	if hits.Load() != 0 {
		t.Fatalf("server was called %d times", hits.Load())
	}
}

func TestChat_InvalidOptionsRejectedBeforeIO(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	opts := options.DefaultChatOptions()
	opts.Temperature = 3
	if _, err := c.Chat(context.Background(), opts, userMessages("hi")); err == nil {
		t.Fatalf("expected validation error")
	}
	if hits.Load() != 0 {
		t.Fatalf("server was called %d times", hits.Load())
	}
}

func TestChat_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req_vendor")
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{
				"message": "Rate limit reached",
				"type":    "requests",
				"code":    "rate_limit_exceeded",
				"param":   nil,
			},
		})
	})
	_, err := c.Chat(context.Background(), options.DefaultChatOptions(), userMessages("hi"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got=%T %v want *APIError", err, err)
	}
	if apiErr.StatusCode != 429 || apiErr.Code != "rate_limit_exceeded" || apiErr.Type != "requests" {
		t.Fatalf("got=%+v", apiErr)
	}
	if apiErr.RequestID != "req_vendor" {
		t.Fatalf("request id got=%q", apiErr.RequestID)
	}
	if !IsStatus(err, http.StatusTooManyRequests) {
		t.Fatalf("IsStatus should match 429")
	}
	if !strings.Contains(err.Error(), "Rate limit reached") {
		t.Fatalf("error text got=%q", err.Error())
	}
}

func TestChat_NonJSONErrorKeepsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "  upstream down \n")
	})
	_, err := c.Chat(context.Background(), options.DefaultChatOptions(), userMessages("hi"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got=%v", err)
	}
	if apiErr.Message != "upstream down" {
		t.Fatalf("message got=%q", apiErr.Message)
	}
}

func TestChat_EmptyContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"choices": []any{}})
	})
	_, err := c.Chat(context.Background(), options.DefaultChatOptions(), userMessages("hi"))
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("got=%v want=%v", err, ErrEmptyResponse)
	}
	if !strings.Contains(err.Error(), chatContentPath) {
		t.Fatalf("error should name the path, got=%q", err.Error())
	}
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("path got=%s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "Say this is a test" {
			t.Errorf("prompt got=%v", body["prompt"])
		}
		if body["max_tokens"] != float64(256) {
			t.Errorf("max_tokens got=%v", body["max_tokens"])
		}
		writeJSON(w, http.StatusOK, map[string]any{"choices": []any{map[string]any{"text": "This is a test."}}})
	})
	got, err := c.Complete(context.Background(), options.DefaultCompletionOptions(), "Say this is a test")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "This is a test." {
		t.Fatalf("got=%q", got)
	}
}

func TestEmbed_CachesVectors(t *testing.T) {
	var sent [][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p apitypes.EmbeddingPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		sent = append(sent, p.Input)
		data := make([]any, 0, len(p.Input))
		for i, in := range p.Input {
			data = append(data, map[string]any{"index": i, "embedding": []any{float64(len(in)), 0.5}})
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})
	}, func(cfg *Config) { cfg.EmbeddingCacheSize = 8 })

	opts := options.DefaultEmbeddingOptions()
	got, err := c.Embed(context.Background(), opts, []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 || got[1][0] != 3 {
		t.Fatalf("got=%v", got)
	}

	got, err = c.Embed(context.Background(), opts, []string{"bbb", "cc", "a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 3 || got[1][0] != 2 || got[2][0] != 1 {
		t.Fatalf("order got=%v", got)
	}
	if len(sent) != 2 || len(sent[1]) != 1 || sent[1][0] != "cc" {
		t.Fatalf("second request should only carry the miss, sent=%v", sent)
	}
	if c.embeds.len() != 3 {
		t.Fatalf("cache len got=%d want=3", c.embeds.len())
	}

	_, err = c.Embed(context.Background(), opts, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestEmbed_CachedVectorsAreCopies(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{"index": 0, "embedding": []any{1.0, 0.5}}}})
	}, func(cfg *Config) { cfg.EmbeddingCacheSize = 8 })

	opts := options.DefaultEmbeddingOptions()
	got, err := c.Embed(context.Background(), opts, []string{"a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	got[0][0] = 99

	got, err = c.Embed(context.Background(), opts, []string{"a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[0][1] != 0.5 {
		t.Fatalf("cached vector changed, got=%v", got[0])
	}
	got[0][1] = -1

	got, err = c.Embed(context.Background(), opts, []string{"a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][1] != 0.5 {
		t.Fatalf("cached vector changed, got=%v", got[0])
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("upstream calls got=%d want=1", n)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{"embedding": []any{1.0}}}})
	})
	_, err := c.Embed(context.Background(), options.DefaultEmbeddingOptions(), []string{"a", "b"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("got=%v want=%v", err, ErrEmptyResponse)
	}
}

func TestLogger_WritesOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}},
			"usage":   map[string]any{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
		})
	}, func(cfg *Config) { cfg.Logger = log.New(&buf, "", 0) })

	if _, err := c.Chat(context.Background(), options.DefaultChatOptions(), userMessages("hi")); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[GPT]", `POST "/v1/chat/completions"`, "endpoint=chat", "model=gpt-4o-mini", "input_tokens=5", "total_tokens=7"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected one line, got=%q", line)
	}
}

func TestLogger_KeepsBothRequestIDs(t *testing.T) {
	var buf bytes.Buffer
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req_vendor")
		if r.URL.Path == "/v1/models" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "bad key", "type": "invalid_request_error"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}}})
	}, func(cfg *Config) { cfg.Logger = log.New(&buf, "", 0) })

	ctx := requestid.WithID(context.Background(), "rid-local")
	if _, err := c.Chat(ctx, options.DefaultChatOptions(), userMessages("hi")); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	_, err := c.ListModels(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RequestID != "req_vendor" {
		t.Fatalf("got=%v want APIError with vendor request id", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got=%q", buf.String())
	}
	for _, line := range lines {
		for _, want := range []string{" request_id=rid-local", "vendor_request_id=req_vendor"} {
			if !strings.Contains(line, want) {
				t.Fatalf("missing %q in %q", want, line)
			}
		}
	}
}

func TestDump_WritesFilePerCall(t *testing.T) {
	dir := t.TempDir()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "dumped"}}}})
	}, func(cfg *Config) {
		cfg.Dump = trafficdump.Config{Enabled: true, Dir: dir, FilePath: "{{.request_id}}.log", MaxBytes: 4096, MaskSecrets: true}
	})

	ctx := requestid.WithID(context.Background(), "rid-dump")
	got, err := c.Chat(ctx, options.DefaultChatOptions(), userMessages("hi"))
	if err != nil || got != "dumped" {
		t.Fatalf("Chat got=%q err=%v", got, err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "rid-dump.log"))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	s := string(b)
	for _, want := range []string{"endpoint=chat", trafficdump.SectionRequest, `"model":"gpt-4o-mini"`, trafficdump.SectionResponse, "dumped"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in dump:\n%s", want, s)
		}
	}
	if strings.Contains(s, "sk-test") {
		t.Fatalf("api key leaked into dump")
	}
}

func TestLogger_AddsCostWhenPriced(t *testing.T) {
	var buf bytes.Buffer
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}},
			"usage":   map[string]any{"prompt_tokens": 1000, "completion_tokens": 500},
		})
	}, func(cfg *Config) {
		cfg.Logger = log.New(&buf, "", 0)
		cfg.Cost = func(model string, in, out int) (float64, bool) {
			if model != "gpt-4o-mini" {
				return 0, false
			}
			return float64(in)*0.15/1e6 + float64(out)*0.6/1e6, true
		}
	})

	if _, err := c.Chat(context.Background(), options.DefaultChatOptions(), userMessages("hi")); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if line := buf.String(); !strings.Contains(line, "cost_total=0.00045") {
		t.Fatalf("missing cost in %q", line)
	}
}
