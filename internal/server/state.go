package server

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/r9s-ai/gptdesk/internal/config"
	"github.com/r9s-ai/gptdesk/internal/keystore"
	"github.com/r9s-ai/gptdesk/internal/models"
	"github.com/r9s-ai/gptdesk/pkg/gpt"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

// runtime is everything a config file produces. It is swapped as a whole on reload.
type runtime struct {
	cfg     *config.Config
	client  *gpt.Client
	catalog *models.Catalog
	keys    *keystore.Store
}

type state struct {
	mu        sync.RWMutex
	rt        runtime
	logger    *log.Logger
	startedAt int64
}

func buildRuntime(cfg *config.Config, logger *log.Logger) (runtime, error) {
	catalog, err := models.Load(cfg.Models.File)
	if err != nil {
		return runtime{}, fmt.Errorf("load models file %q: %w", cfg.Models.File, err)
	}
	gcfg := cfg.GPTConfig(logger)
	gcfg.Cost = catalog.Cost
	client, err := gpt.New(gcfg)
	if err != nil {
		return runtime{}, fmt.Errorf("api client: %w", err)
	}
	keys, err := loadKeys(cfg)
	if err != nil {
		return runtime{}, err
	}
	return runtime{cfg: cfg, client: client, catalog: catalog, keys: keys}, nil
}

// loadKeys prefers server.keys_file and falls back to server.api_key.
func loadKeys(cfg *config.Config) (*keystore.Store, error) {
	if p := strings.TrimSpace(cfg.Server.KeysFile); p != "" {
		ks, err := keystore.Load(p)
		if err != nil {
			return nil, fmt.Errorf("load keys file %q: %w", p, err)
		}
		return ks, nil
	}
	ks := keystore.NewStatic(cfg.Server.APIKey)
	if ks.Len() == 0 {
		return nil, fmt.Errorf("server.api_key or server.keys_file is required (or set GPTDESK_SERVER_API_KEY)")
	}
	return ks, nil
}

func (s *state) set(rt runtime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rt = rt
}

func (s *state) get() runtime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rt
}

func (s *state) Client() *gpt.Client { return s.get().client }
func (s *state) Catalog() *models.Catalog { return s.get().catalog }
func (s *state) Keys() *keystore.Store { return s.get().keys }
// Defaults returns a copy of the configured defaults that a request may decode into.
func (s *state) Defaults() options.Set { return s.get().cfg.Defaults.Clone() }
func (s *state) Config() *config.Config { return s.get().cfg }
func (s *state) StartedAtUnix() int64 { return s.startedAt }
