package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/r9s-ai/gptdesk/internal/config"
	"github.com/r9s-ai/gptdesk/internal/keystore"
	"github.com/r9s-ai/gptdesk/internal/models"
	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/gpt"
	"github.com/r9s-ai/gptdesk/pkg/options"
	"github.com/r9s-ai/gptdesk/pkg/requestid"
)

const testKey = "local-key"

type fixture struct {
	engine *gin.Engine
	hits   *atomic.Int32
	cfg    *config.Config
}

func newFixture(t *testing.T, upstream http.HandlerFunc, catalog *models.Catalog) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := gpt.New(gpt.Config{BaseURL: srv.URL, APIKey: "sk-test"})
	require.NoError(t, err)
	if catalog == nil {
		catalog, err = models.NewCatalog(nil)
		require.NoError(t, err)
	}
	cfg := &config.Config{Defaults: options.DefaultSet()}
	st := &state{rt: runtime{cfg: cfg, client: client, catalog: catalog, keys: keystore.NewStatic(testKey)}}
	return fixture{engine: NewRouter(st, nil, false), hits: hits, cfg: cfg}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func chatReply(w http.ResponseWriter, text string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": text}}},
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apitypes.ErrorBody {
	t.Helper()
	var env apitypes.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error, "body=%s", w.Body.String())
	return *env.Error
}

func TestChat_OptionsOverrideDefaults(t *testing.T) {
	var got apitypes.ChatPayload
	var gotRID string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotRID = r.Header.Get(requestid.HeaderKey)
		_ = json.NewDecoder(r.Body).Decode(&got)
		chatReply(w, "hi there")
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{
		"messages": [{"role": "user", "content": "hello"}],
		"options": {"model": "gpt-4o", "temperature": 0.3}
	}`))
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set(requestid.HeaderKey, "rid-123")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"text":"hi there"}`, w.Body.String())
	require.Equal(t, "gpt-4o", got.Model)
	require.NotNil(t, got.Temperature)
	require.InDelta(t, 0.3, *got.Temperature, 1e-9)
	require.NotNil(t, got.TopP)
	require.InDelta(t, 1.0, *got.TopP, 1e-9)
	require.Equal(t, "rid-123", gotRID)
	require.Equal(t, "rid-123", w.Header().Get(requestid.HeaderKey))
}

func TestChat_OptionsLeaveConfiguredDefaults(t *testing.T) {
	var stops [][]string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		var got apitypes.ChatPayload
		_ = json.NewDecoder(r.Body).Decode(&got)
		stops = append(stops, got.Stop)
		chatReply(w, "ok")
	}, nil)
	f.cfg.Defaults.Chat.Stop = []string{"END", "STOP"}

	w := f.do(t, http.MethodPost, "/v1/chat", `{"messages":[{"role":"user","content":"hi"}],"options":{"stop":["X"]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, []string{"END", "STOP"}, f.cfg.Defaults.Chat.Stop)

	w = f.do(t, http.MethodPost, "/v1/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, [][]string{{"X"}, {"END", "STOP"}}, stops)
}

func TestChat_RejectsBeforeUpstream(t *testing.T) {
	catalog, err := models.NewCatalog(map[string]models.Entry{"gpt-4o": {Kinds: []models.Kind{models.KindChat}}})
	require.NoError(t, err)
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) { chatReply(w, "x") }, catalog)
	msgs := []map[string]any{{"role": "user", "content": "hello"}}

	cases := []struct {
		name string
		body any
		code string
	}{
		{"bad temperature", map[string]any{"messages": msgs, "options": map[string]any{"model": "gpt-4o", "temperature": 5}}, "invalid_options"},
		{"model not in catalog", map[string]any{"messages": msgs}, "model_not_supported"},
		{"stream", map[string]any{"messages": msgs, "options": map[string]any{"model": "gpt-4o", "stream": true}}, "stream_unsupported"},
		{"no messages", map[string]any{"options": map[string]any{"model": "gpt-4o"}}, "missing_messages"},
		{"invalid json", "{", "invalid_json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/v1/chat", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			require.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
	require.Zero(t, f.hits.Load())
}

func TestChat_APIErrorKeepsVendorStatus(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"message": "slow down", "type": "requests", "code": "rate_limit_exceeded"},
		})
	}, nil)
	w := f.do(t, http.MethodPost, "/v1/chat", map[string]any{"messages": []map[string]any{{"role": "user", "content": "hi"}}})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	eb := decodeError(t, w)
	require.Equal(t, "requests", eb.Type)
	require.Equal(t, "rate_limit_exceeded", eb.Code)
	require.Contains(t, eb.Message, "slow down")
}

func TestUnauthorized(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEmbeddingsAndCompletions(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embeddings":
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{
				map[string]any{"embedding": []float64{0.1, 0.2}},
			}})
		case "/completions":
			writeJSON(w, http.StatusOK, map[string]any{"choices": []any{map[string]any{"text": "done"}}})
		default:
			http.NotFound(w, r)
		}
	}, nil)

	w := f.do(t, http.MethodPost, "/v1/embeddings", map[string]any{"input": []string{"a"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"embeddings":[[0.1,0.2]]}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/v1/completions", map[string]any{"prompt": "say done"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"text":"done"}`, w.Body.String())
}

func TestSpeech_ReturnsAudio(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte{0x4f, 0x67, 0x67})
	}, nil)
	w := f.do(t, http.MethodPost, "/v1/speech", map[string]any{"input": "hello", "options": map[string]any{"response_format": "opus"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "audio/ogg", w.Header().Get("Content-Type"))
	require.Equal(t, 3, w.Body.Len())
}

func TestTranscription_Multipart(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
		}
		if r.FormValue("language") != "de" {
			t.Errorf("language got=%q", r.FormValue("language"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"text": "hallo"})
	}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "clip.wav")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("RIFF"))
	require.NoError(t, mw.WriteField("options", `{"language":"de"}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", &body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"text":"hallo"}`, w.Body.String())
}

func TestTranslation_MissingFile(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	w := f.do(t, http.MethodPost, "/v1/translations", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "missing_file", decodeError(t, w).Code)
	require.Zero(t, f.hits.Load())
}

func TestModels_CatalogAndLive(t *testing.T) {
	catalog, err := models.NewCatalog(map[string]models.Entry{"local-model": {Kinds: []models.Kind{models.KindChat}, OwnedBy: "me"}})
	require.NoError(t, err)
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": []any{
			map[string]any{"id": "gpt-4o", "object": "model", "owned_by": "system"},
		}})
	}, catalog)

	w := f.do(t, http.MethodGet, "/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list apitypes.ModelList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Zero(t, f.hits.Load())

	w = f.do(t, http.MethodGet, "/v1/models?live=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	require.Equal(t, "gpt-4o", list.Data[0].ID)
	require.Equal(t, "local-model", list.Data[1].ID)
}

func TestAsk_RunFailureIsBadGateway(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/threads":
			writeJSON(w, http.StatusOK, map[string]any{"id": "thread_1", "object": "thread"})
		case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/messages":
			writeJSON(w, http.StatusOK, map[string]any{"id": "msg_1", "object": "thread.message", "role": "user"})
		case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/runs":
			writeJSON(w, http.StatusOK, map[string]any{"id": "run_1", "thread_id": "thread_1", "status": "failed",
				"last_error": map[string]any{"code": "server_error", "message": "boom"}})
		default:
			http.NotFound(w, r)
		}
	}, nil)
	w := f.do(t, http.MethodPost, "/v1/assistants/asst_1/ask", map[string]any{"question": "why?"})
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	require.Equal(t, "run_failed", decodeError(t, w).Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "gptdesk_server_requests_total")
}
