package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r9s-ai/gptdesk/internal/keystore"
	"github.com/r9s-ai/gptdesk/pkg/gpt"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "GPTDESK_") || strings.HasPrefix(name, "OPENAI_") {
			t.Setenv(name, "")
		}
	}
}

// vendorEnv points the environment-only config at a fake vendor.
func vendorEnv(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	clearEnv(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GPTDESK_BASE_URL", srv.URL+"/v1")
	t.Setenv("GPTDESK_CALL_LOG", "false")
	t.Setenv("GPTDESK_MODELS_FILE", filepath.Join(t.TempDir(), "models.yaml"))
}

func runCLI(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var out bytes.Buffer
	root := newRootCmd(&app{stdin: stdin, stdout: &out})
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func chatReply(text string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": text}}},
	}
}

func TestResolveEncryptPlaintext_FromFlag(t *testing.T) {
	got, err := resolveEncryptPlaintext("  hello  ", bytes.NewBufferString("ignored"), true)
	if err != nil {
		t.Fatalf("resolveEncryptPlaintext err=%v", err)
	}
	if got != "hello" {
		t.Fatalf("got=%q want=%q", got, "hello")
	}
}

func TestResolveEncryptPlaintext_FromTerminalLine(t *testing.T) {
	got, err := resolveEncryptPlaintext("", bytes.NewBufferString("secret\nsecond\n"), true)
	if err != nil {
		t.Fatalf("resolveEncryptPlaintext err=%v", err)
	}
	if got != "secret" {
		t.Fatalf("got=%q want=%q", got, "secret")
	}
}

func TestResolveEncryptPlaintext_FromPipe(t *testing.T) {
	got, err := resolveEncryptPlaintext("", bytes.NewBufferString("secret\nsecond\n"), false)
	if err != nil {
		t.Fatalf("resolveEncryptPlaintext err=%v", err)
	}
	if got != "secret\nsecond" {
		t.Fatalf("got=%q want=%q", got, "secret\nsecond")
	}
}

func TestConfigPath_Precedence(t *testing.T) {
	clearEnv(t)
	a := &app{}
	if got := a.configPath(); got != "" {
		t.Fatalf("got=%q want empty", got)
	}
	t.Setenv(ConfigEnv, "/etc/gptdesk.yaml")
	if got := a.configPath(); got != "/etc/gptdesk.yaml" {
		t.Fatalf("got=%q", got)
	}
	a.cfgPath = " ./mine.yaml "
	if got := a.configPath(); got != "./mine.yaml" {
		t.Fatalf("got=%q", got)
	}
}

func TestChat_FlagsOverrideDefaults(t *testing.T) {
	var body map[string]any
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path got=%s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, chatReply("hi there"))
	})

	out, err := runCLI(t, nil, "chat", "-m", "gpt-4o", "--temperature", "0.5", "--system", "be brief", "hello", "world")
	require.NoError(t, err)
	require.Equal(t, "hi there\n", out)
	require.Equal(t, "gpt-4o", body["model"])
	require.Equal(t, 0.5, body["temperature"])

	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "be brief", msgs[0].(map[string]any)["content"])
	require.Equal(t, "hello world", msgs[1].(map[string]any)["content"])
}

func TestChat_ReadsPipedStdin(t *testing.T) {
	var got string
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		got = body.Messages[len(body.Messages)-1].Content
		writeJSON(w, http.StatusOK, chatReply("ok"))
	})

	_, err := runCLI(t, strings.NewReader("  from a pipe \n"), "chat")
	require.NoError(t, err)
	require.Equal(t, "from a pipe", got)
}

func TestChat_VendorErrorIsReturned(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{
			"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key",
		}})
	})

	_, err := runCLI(t, nil, "chat", "hello")
	var apiErr *gpt.APIError
	require.True(t, errors.As(err, &apiErr), "got %T %v", err, err)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestChat_InvalidFlagRejectedBeforeIO(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call %s", r.URL.Path)
	})
	_, err := runCLI(t, nil, "chat", "--temperature", "3", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "temperature")
}

func TestChat_ReasoningEffortHelpListsAcceptedValues(t *testing.T) {
	var got []string
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		effort, _ := body["reasoning_effort"].(string)
		got = append(got, effort)
		writeJSON(w, http.StatusOK, chatReply("ok"))
	})

	usage := newChatCmd(&app{}).Flags().Lookup("reasoning-effort").Usage
	head, _, _ := strings.Cut(usage, " ")
	values := strings.Split(head, "|")
	require.Contains(t, values, "minimal")
	for _, v := range values {
		_, err := runCLI(t, nil, "chat", "--reasoning-effort", v, "hello")
		require.NoError(t, err, v)
	}
	require.Equal(t, values, got)
}

func TestChat_CatalogRejectsWrongKind(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call %s", r.URL.Path)
	})
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  gpt-4o-mini:
    kinds: [chat]
  text-embedding-3-small:
    kinds: [embedding]
`), 0o600))
	t.Setenv("GPTDESK_MODELS_FILE", path)

	_, err := runCLI(t, nil, "chat", "-m", "text-embedding-3-small", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "text-embedding-3-small")
}

func TestEmbed_PrintsVectors(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{
			map[string]any{"index": 0, "embedding": []any{0.1, 0.2}},
			map[string]any{"index": 1, "embedding": []any{0.3, 0.4}},
		}})
	})

	out, err := runCLI(t, nil, "embed", "a", "b")
	require.NoError(t, err)
	var vecs [][]float64
	require.NoError(t, json.Unmarshal([]byte(out), &vecs))
	require.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, vecs)
}

func TestImageGenerate_SavesBase64Results(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["response_format"] != "b64_json" {
			t.Errorf("response_format got=%v", body["response_format"])
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{
			map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte("png-bytes"))},
		}})
	})

	dir := filepath.Join(t.TempDir(), "out")
	out, err := runCLI(t, nil, "image", "generate", "--out-dir", dir, "a", "red", "fox")
	require.NoError(t, err)
	want := filepath.Join(dir, "image-1.png")
	require.Equal(t, want+"\n", out)
	b, err := os.ReadFile(want)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(b))
}

func TestSpeech_WritesOutputFile(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF...."))
	})

	path := filepath.Join(t.TempDir(), "hello.wav")
	out, err := runCLI(t, nil, "speech", "--format", "wav", "-o", path, "hello")
	require.NoError(t, err)
	require.Contains(t, out, path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "RIFF....", string(b))
}

func TestVectorsModify_NeedsAChange(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, nil, "vectors", "modify", "vs_1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nothing to change")
}

func TestFilesList_PassesPurpose(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("purpose"); got != "fine-tune" {
			t.Errorf("purpose got=%q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": []any{
			map[string]any{"id": "file-1", "object": "file", "filename": "train.jsonl", "purpose": "fine-tune"},
		}})
	})

	out, err := runCLI(t, nil, "files", "list", "--purpose", "fine-tune")
	require.NoError(t, err)
	require.Contains(t, out, `"file-1"`)
}

func TestModels_KindFromCatalog(t *testing.T) {
	vendorEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call %s", r.URL.Path)
	})
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  gpt-4o:
    kinds: [chat]
  gpt-4o-mini:
    kinds: [chat, assistant]
  whisper-1:
    kinds: [transcription, translation]
`), 0o600))
	t.Setenv("GPTDESK_MODELS_FILE", path)

	out, err := runCLI(t, nil, "models", "--kind", "chat")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o\ngpt-4o-mini\n", out)
}

func TestCryptoEncryptKeys_DryRunAndWrite(t *testing.T) {
	clearEnv(t)
	t.Setenv(keystore.MasterKeyEnv, "0123456789abcdef0123456789abcdef")
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access_keys:\n  - name: ui\n    value: ak-ui\n"), 0o600))

	out, err := runCLI(t, nil, "crypto", "encrypt-keys", "--keys", path, "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "1 value(s) would be encrypted")

	out, err = runCLI(t, nil, "crypto", "encrypt-keys", "--keys", path, "--backup=false")
	require.NoError(t, err)
	require.Contains(t, out, "encrypted 1 value(s)")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(b), "ak-ui")
	require.Contains(t, string(b), "ENC[v1:aesgcm:")
}

func TestCryptoGenMasterKey_Formats(t *testing.T) {
	out, err := runCLI(t, nil, "crypto", "gen-master-key")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Len(t, raw, 32)

	out, err = runCLI(t, nil, "crypto", "gen-master-key", "--format", "base64url", "--export")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "export "+keystore.MasterKeyEnv+"='"), out)

	_, err = runCLI(t, nil, "crypto", "gen-master-key", "--format", "hex")
	require.Error(t, err)
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-abcdefghijklmnop")
	out, err := runCLI(t, nil, "config", "show")
	require.NoError(t, err)
	require.NotContains(t, out, "sk-abcdefghijklmnop")
	require.Contains(t, out, "****mnop")
}

func TestConfigValidate_ReportsMissingKey(t *testing.T) {
	clearEnv(t)
	_, err := runCLI(t, nil, "config", "validate")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api.api_key")
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{"": "", "short": "****", "sk-1234567890": "****7890"}
	for in, want := range cases {
		if got := maskSecret(in); got != want {
			t.Fatalf("maskSecret(%q) got=%q want=%q", in, got, want)
		}
	}
}
