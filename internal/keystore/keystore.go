// Package keystore decrypts secrets stored as ENC[v1:aesgcm:...] and holds the
// access keys accepted by the local HTTP surface.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// MasterKeyEnv names the variable holding the AES-256 key.
const MasterKeyEnv = "GPTDESK_MASTER_KEY"

var encValuePattern = regexp.MustCompile(`^ENC\[v1:aesgcm:([A-Za-z0-9+/=]+)\]$`)

// Store holds the client keys of the local HTTP surface.
type Store struct {
	mu         sync.RWMutex
	accessKeys []AccessKey
}

type AccessKey struct {
	Name     string `yaml:"name"`
	Value    string `yaml:"value"`
	Disabled bool   `yaml:"disabled"`
	Comment  string `yaml:"comment"`
}

type fileFormat struct {
	AccessKeys []AccessKey `yaml:"access_keys"`
}

// Load reads a keys file. Values may be encrypted and may be overridden by
// GPTDESK_ACCESS_KEY_<NAME> (or GPTDESK_ACCESS_KEY_<n> for unnamed entries).
func Load(path string) (*Store, error) {
	// #nosec G304 -- path is provided by trusted config.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ff fileFormat
	if err := yaml.Unmarshal(b, &ff); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	aks := make([]AccessKey, 0, len(ff.AccessKeys))
	for i, ak := range ff.AccessKeys {
		if ak.Disabled {
			continue
		}
		ak.Name = strings.TrimSpace(ak.Name)
		ak.Comment = strings.TrimSpace(ak.Comment)

		raw := strings.TrimSpace(ak.Value)
		if envVal := strings.TrimSpace(os.Getenv(envVarForAccessKey(ak.Name, i))); envVal != "" {
			raw = envVal
		}
		if raw == "" {
			continue
		}
		val, err := DecryptIfNeeded(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid access_keys value name=%q: %w", ak.Name, err)
		}
		ak.Value = val
		aks = append(aks, ak)
	}
	if len(aks) == 0 {
		return nil, fmt.Errorf("%s has no access_keys configured", path)
	}
	return &Store{accessKeys: aks}, nil
}

// NewStatic builds a store from plain values, skipping blanks.
func NewStatic(values ...string) *Store {
	s := &Store{}
	for i, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			s.accessKeys = append(s.accessKeys, AccessKey{Name: fmt.Sprintf("static-%d", i+1), Value: v})
		}
	}
	return s
}

func (s *Store) MatchAccessKey(value string) (AccessKey, bool) {
	if s == nil {
		return AccessKey{}, false
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return AccessKey{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ak := range s.accessKeys {
		if subtle.ConstantTimeCompare([]byte(v), []byte(ak.Value)) == 1 {
			return ak, true
		}
	}
	return AccessKey{}, false
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accessKeys)
}

func envVarForAccessKey(name string, index int) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return fmt.Sprintf("GPTDESK_ACCESS_KEY_%d", index+1)
	}
	return "GPTDESK_ACCESS_KEY_" + sanitizeEnvToken(n)
}

func sanitizeEnvToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsEncrypted reports whether raw has the ENC[...] form.
func IsEncrypted(raw string) bool {
	return encValuePattern.MatchString(strings.TrimSpace(raw))
}

// DecryptIfNeeded returns raw unchanged unless it is an ENC[...] value.
func DecryptIfNeeded(raw string) (string, error) {
	m := encValuePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return raw, nil
	}
	key, err := loadMasterKey()
	if err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return "", fmt.Errorf("invalid base64 ciphertext: %w", err)
	}
	if len(data) < 12 {
		return "", errors.New("ciphertext too short")
	}
	nonce := data[:12]
	ct := data[12:]

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt failed: %w", err)
	}
	return string(pt), nil
}

// Encrypt seals plain with the master key into the ENC[...] form.
func Encrypt(plain string) (string, error) {
	key, err := loadMasterKey()
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := gcm.Seal(nil, nonce, []byte(plain), nil)
	buf := make([]byte, 0, len(nonce)+len(ct))
	buf = append(buf, nonce...)
	buf = append(buf, ct...)
	return "ENC[v1:aesgcm:" + base64.StdEncoding.EncodeToString(buf) + "]", nil
}

// GenerateMasterKey returns a new base64-encoded 32-byte key.
func GenerateMasterKey() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func loadMasterKey() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(MasterKeyEnv))
	if raw == "" {
		return nil, errors.New(MasterKeyEnv + " is required to decrypt ENC[...] values")
	}
	// Accept either raw 32-byte string or base64.
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New(MasterKeyEnv + " must be 32 bytes or base64-encoded 32 bytes")
	}
	if len(b) != 32 {
		return nil, errors.New(MasterKeyEnv + " must be 32 bytes (AES-256)")
	}
	return b, nil
}
