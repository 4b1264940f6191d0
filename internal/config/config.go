// Package config loads gptdesk.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/gptdesk/internal/keystore"
	"github.com/r9s-ai/gptdesk/pkg/gpt"
	"github.com/r9s-ai/gptdesk/pkg/options"
	"github.com/r9s-ai/gptdesk/pkg/trafficdump"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "gptdesk.yaml"

type Config struct {
	API struct {
		BaseURL      string `yaml:"base_url"`
		APIKey       string `yaml:"api_key"`
		Organization string `yaml:"organization"`
		Project      string `yaml:"project"`
		TimeoutMs    int    `yaml:"timeout_ms"`
		ProxyURL     string `yaml:"proxy_url"`
		NoProxy      string `yaml:"no_proxy"`
	} `yaml:"api"`

	// Defaults are decoded over options.DefaultSet, so omitted fields keep
	// their built-in values.
	Defaults options.Set `yaml:"defaults"`

	Models struct {
		// File is optional. A missing file means no catalog restrictions.
		File string `yaml:"file"`
	} `yaml:"models"`

	TrafficDump struct {
		Enabled     bool   `yaml:"enabled"`
		Dir         string `yaml:"dir"`
		FilePath    string `yaml:"file_path"`
		MaxBytes    int    `yaml:"max_bytes"`
		MaskSecrets bool   `yaml:"mask_secrets"`
	} `yaml:"traffic_dump"`

	Logging struct {
		// File receives log lines instead of stderr when set.
		File      string `yaml:"file"`
		AccessLog bool   `yaml:"access_log"`
		CallLog   bool   `yaml:"call_log"`
	} `yaml:"logging"`

	Server struct {
		Listen         string `yaml:"listen"`
		APIKey         string `yaml:"api_key"`
		KeysFile       string `yaml:"keys_file"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	} `yaml:"server"`

	Cache struct {
		// EmbeddingsSize is the number of cached vectors. Zero disables the cache.
		EmbeddingsSize int `yaml:"embeddings_size"`
	} `yaml:"cache"`

	path string
}

func newDefault() *Config {
	cfg := &Config{Defaults: options.DefaultSet()}
	cfg.API.TimeoutMs = int(gpt.DefaultTimeout / time.Millisecond)
	cfg.TrafficDump.MaskSecrets = true
	cfg.TrafficDump.MaxBytes = 1 * 1024 * 1024
	cfg.Logging.AccessLog = true
	cfg.Logging.CallLog = true
	cfg.Cache.EmbeddingsSize = 1024
	return cfg
}

// Load reads path (which may be empty to run on defaults and environment
// alone). A .env file in the working directory and one next to the config
// file are loaded first; variables already set in the process win.
func Load(path string) (*Config, error) {
	loadDotEnv(path)

	cfg := newDefault()
	if p := strings.TrimSpace(path); p != "" {
		// #nosec G304 -- path is provided by the operator.
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		cfg.path = p
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := decryptSecrets(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file cfg was read from, or "" when it came from the environment only.
func (c *Config) Path() string { return c.path }

func loadDotEnv(path string) {
	files := []string{".env"}
	if p := strings.TrimSpace(path); p != "" {
		if near := filepath.Join(filepath.Dir(p), ".env"); near != ".env" {
			files = append(files, near)
		}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("load %s: %v", f, err)
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		cfg.API.BaseURL = gpt.DefaultBaseURL
	}
	if cfg.API.TimeoutMs <= 0 {
		cfg.API.TimeoutMs = int(gpt.DefaultTimeout / time.Millisecond)
	}
	if strings.TrimSpace(cfg.Models.File) == "" {
		cfg.Models.File = "./models.yaml"
	}
	if strings.TrimSpace(cfg.TrafficDump.Dir) == "" {
		cfg.TrafficDump.Dir = "./dumps"
	}
	if strings.TrimSpace(cfg.TrafficDump.FilePath) == "" {
		cfg.TrafficDump.FilePath = "{{.request_id}}.log"
	}
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = "127.0.0.1:8787"
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 60000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		// Assistant runs poll for a while; leave room beyond the API timeout.
		cfg.Server.WriteTimeoutMs = cfg.API.TimeoutMs + 60000
	}
}

func applyEnvOverrides(cfg *Config) {
	// Vendor-standard names first so GPTDESK_* can override them.
	setString(&cfg.API.APIKey, "OPENAI_API_KEY")
	setString(&cfg.API.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.API.Organization, "OPENAI_ORG_ID")
	setString(&cfg.API.Project, "OPENAI_PROJECT_ID")

	setString(&cfg.API.APIKey, "GPTDESK_API_KEY")
	setString(&cfg.API.BaseURL, "GPTDESK_BASE_URL")
	setString(&cfg.API.Organization, "GPTDESK_ORGANIZATION")
	setString(&cfg.API.Project, "GPTDESK_PROJECT")
	setPositiveInt(&cfg.API.TimeoutMs, "GPTDESK_TIMEOUT_MS")
	setString(&cfg.API.ProxyURL, "GPTDESK_PROXY_URL")
	setString(&cfg.API.NoProxy, "GPTDESK_NO_PROXY")

	setString(&cfg.Models.File, "GPTDESK_MODELS_FILE")

	cfg.TrafficDump.Enabled = envBool("GPTDESK_TRAFFIC_DUMP_ENABLED", cfg.TrafficDump.Enabled)
	setString(&cfg.TrafficDump.Dir, "GPTDESK_TRAFFIC_DUMP_DIR")
	setString(&cfg.TrafficDump.FilePath, "GPTDESK_TRAFFIC_DUMP_FILE_PATH")
	if v := strings.TrimSpace(os.Getenv("GPTDESK_TRAFFIC_DUMP_MAX_BYTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TrafficDump.MaxBytes = n
		}
	}
	cfg.TrafficDump.MaskSecrets = envBool("GPTDESK_TRAFFIC_DUMP_MASK_SECRETS", cfg.TrafficDump.MaskSecrets)

	setString(&cfg.Logging.File, "GPTDESK_LOG_FILE")
	cfg.Logging.AccessLog = envBool("GPTDESK_ACCESS_LOG", cfg.Logging.AccessLog)
	cfg.Logging.CallLog = envBool("GPTDESK_CALL_LOG", cfg.Logging.CallLog)

	setString(&cfg.Server.Listen, "GPTDESK_LISTEN")
	setString(&cfg.Server.APIKey, "GPTDESK_SERVER_API_KEY")
	setString(&cfg.Server.KeysFile, "GPTDESK_KEYS_FILE")
	setPositiveInt(&cfg.Server.ReadTimeoutMs, "GPTDESK_READ_TIMEOUT_MS")
	setPositiveInt(&cfg.Server.WriteTimeoutMs, "GPTDESK_WRITE_TIMEOUT_MS")

	if v := strings.TrimSpace(os.Getenv("GPTDESK_EMBEDDINGS_CACHE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Cache.EmbeddingsSize = n
		}
	}
}

func decryptSecrets(cfg *Config) error {
	key, err := keystore.DecryptIfNeeded(strings.TrimSpace(cfg.API.APIKey))
	if err != nil {
		return fmt.Errorf("api.api_key: %w", err)
	}
	cfg.API.APIKey = key
	srv, err := keystore.DecryptIfNeeded(strings.TrimSpace(cfg.Server.APIKey))
	if err != nil {
		return fmt.Errorf("server.api_key: %w", err)
	}
	cfg.Server.APIKey = srv
	return nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.API.APIKey) == "" {
		return errors.New("api.api_key is required (or set OPENAI_API_KEY)")
	}
	if cfg.TrafficDump.MaxBytes < 0 {
		return errors.New("traffic_dump.max_bytes must be non-negative")
	}
	if cfg.Cache.EmbeddingsSize < 0 {
		return errors.New("cache.embeddings_size must be non-negative")
	}
	return cfg.Defaults.Validate()
}

// GPTConfig maps the api, cache and traffic_dump sections to a client config.
func (c *Config) GPTConfig(logger *log.Logger) gpt.Config {
	out := gpt.Config{
		BaseURL:            c.API.BaseURL,
		APIKey:             c.API.APIKey,
		Organization:       c.API.Organization,
		Project:            c.API.Project,
		Timeout:            time.Duration(c.API.TimeoutMs) * time.Millisecond,
		ProxyURL:           c.API.ProxyURL,
		NoProxy:            c.API.NoProxy,
		EmbeddingCacheSize: c.Cache.EmbeddingsSize,
		Dump: trafficdump.Config{
			Enabled:     c.TrafficDump.Enabled,
			Dir:         c.TrafficDump.Dir,
			FilePath:    c.TrafficDump.FilePath,
			MaxBytes:    c.TrafficDump.MaxBytes,
			MaskSecrets: c.TrafficDump.MaskSecrets,
		},
	}
	if c.Logging.CallLog {
		out.Logger = logger
	}
	return out
}

// NewLogger returns a logger writing to logging.file, or to stderr.
// The returned closer is a no-op for stderr.
func (c *Config) NewLogger() (*log.Logger, io.Closer, error) {
	p := strings.TrimSpace(c.Logging.File)
	if p == "" {
		return log.New(os.Stderr, "", 0), io.NopCloser(nil), nil
	}
	// #nosec G304 -- path is provided by the operator.
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(f, "", 0), f, nil
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
