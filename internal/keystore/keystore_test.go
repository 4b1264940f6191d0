package keystore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testMasterKey = "0123456789abcdef0123456789abcdef"

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Setenv(MasterKeyEnv, testMasterKey)
	enc, err := Encrypt("sk-live-123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !IsEncrypted(enc) || !strings.HasPrefix(enc, "ENC[v1:aesgcm:") {
		t.Fatalf("unexpected form: %s", enc)
	}
	got, err := DecryptIfNeeded(enc)
	if err != nil {
		t.Fatalf("DecryptIfNeeded: %v", err)
	}
	if got != "sk-live-123" {
		t.Fatalf("got=%q want=sk-live-123", got)
	}
}

func TestDecryptIfNeeded_PlainPassesThrough(t *testing.T) {
	got, err := DecryptIfNeeded("sk-plain")
	if err != nil || got != "sk-plain" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestDecryptIfNeeded_MissingMasterKey(t *testing.T) {
	t.Setenv(MasterKeyEnv, testMasterKey)
	enc, err := Encrypt("x")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	t.Setenv(MasterKeyEnv, "")
	if _, err := DecryptIfNeeded(enc); err == nil || !strings.Contains(err.Error(), MasterKeyEnv) {
		t.Fatalf("got err=%v", err)
	}
}

func TestGenerateMasterKey_Usable(t *testing.T) {
	k, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("GenerateMasterKey: %v", err)
	}
	t.Setenv(MasterKeyEnv, k)
	enc, err := Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt with generated key: %v", err)
	}
	if got, err := DecryptIfNeeded(enc); err != nil || got != "secret" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestLoad_AccessKeys_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	if err := os.WriteFile(path, []byte(`
access_keys:
  - name: "desk-ui"
    value: ""
  - name: "old"
    value: "ak-old"
    disabled: true
`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("GPTDESK_ACCESS_KEY_DESK_UI", "ak-xxx")
	st, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if ak, ok := st.MatchAccessKey("ak-xxx"); !ok || ak.Name != "desk-ui" {
		t.Fatalf("expected match, got=%+v ok=%v", ak, ok)
	}
	if _, ok := st.MatchAccessKey("ak-old"); ok {
		t.Fatalf("disabled key should not match")
	}
}

func TestLoad_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	if err := os.WriteFile(path, []byte(`access_keys: []`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewStatic(t *testing.T) {
	st := NewStatic("", " k1 ")
	if st.Len() != 1 {
		t.Fatalf("len got=%d want=1", st.Len())
	}
	if _, ok := st.MatchAccessKey("k1"); !ok {
		t.Fatalf("expected match")
	}
}

func TestEncryptAccessKeys_SealsPlainValuesOnly(t *testing.T) {
	t.Setenv(MasterKeyEnv, testMasterKey)
	sealed, err := Encrypt("ak-sealed")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	in := []byte(`# desk keys
access_keys:
  - name: "ui"
    value: "ak-ui"
  - name: "cli"
    value: "` + sealed + `"
  - name: "env-only"
    value: ""
`)
	out, n, err := EncryptAccessKeys(in)
	if err != nil {
		t.Fatalf("EncryptAccessKeys: %v", err)
	}
	if n != 1 {
		t.Fatalf("changed got=%d want=1", n)
	}
	if strings.Contains(string(out), "ak-ui") {
		t.Fatalf("plain value left in output:\n%s", out)
	}
	if !strings.Contains(string(out), "# desk keys") || !strings.Contains(string(out), sealed) {
		t.Fatalf("comment or sealed value lost:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "keys.yaml")
	if err := os.WriteFile(path, out, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ak, ok := st.MatchAccessKey("ak-ui"); !ok || ak.Name != "ui" {
		t.Fatalf("got=%+v ok=%v", ak, ok)
	}
	if _, ok := st.MatchAccessKey("ak-sealed"); !ok {
		t.Fatalf("pre-sealed key should still match")
	}

	again, n, err := EncryptAccessKeys(out)
	if err != nil || n != 0 || string(again) != string(out) {
		t.Fatalf("second pass changed=%d err=%v", n, err)
	}
}

func TestEncryptAccessKeys_RequiresList(t *testing.T) {
	if _, _, err := EncryptAccessKeys([]byte("foo: bar\n")); err == nil {
		t.Fatalf("expected error")
	}
}
