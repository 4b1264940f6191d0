// Package models reads the local model catalog (models.yaml).
//
// The catalog records which endpoint kinds a model serves. When a kind has
// any catalog entries, options naming an unlisted model for that kind are
// rejected before the call is made.
package models

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

type Kind string

const (
	KindChat          Kind = "chat"
	KindCompletion    Kind = "completion"
	KindEmbedding     Kind = "embedding"
	KindImage         Kind = "image"
	KindSpeech        Kind = "speech"
	KindTranscription Kind = "transcription"
	KindTranslation   Kind = "translation"
	KindFineTuning    Kind = "fine_tuning"
	KindAssistant     Kind = "assistant"
)

var knownKinds = map[Kind]struct{}{
	KindChat: {}, KindCompletion: {}, KindEmbedding: {}, KindImage: {}, KindSpeech: {},
	KindTranscription: {}, KindTranslation: {}, KindFineTuning: {}, KindAssistant: {},
}

type Entry struct {
	Kinds   []Kind `yaml:"kinds"`
	OwnedBy string `yaml:"owned_by"`
	Price   *Price `yaml:"price"`
}

// Price is in USD per million tokens.
type Price struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

type File struct {
	Models map[string]Entry `yaml:"models"`
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
	byKind  map[Kind]map[string]struct{}
}

func NewCatalog(entries map[string]Entry) (*Catalog, error) {
	out := &Catalog{
		entries: map[string]Entry{},
		byKind:  map[Kind]map[string]struct{}{},
	}
	for id, e := range entries {
		mid := strings.TrimSpace(id)
		if mid == "" {
			continue
		}
		e.OwnedBy = strings.TrimSpace(e.OwnedBy)
		if e.Price != nil && (e.Price.Input < 0 || e.Price.Output < 0) {
			return nil, fmt.Errorf("model %s: price must be non-negative", mid)
		}
		kinds := make([]Kind, 0, len(e.Kinds))
		for _, k := range e.Kinds {
			k = Kind(strings.ToLower(strings.TrimSpace(string(k))))
			if _, ok := knownKinds[k]; !ok {
				return nil, fmt.Errorf("model %s: unknown kind %q", mid, k)
			}
			kinds = append(kinds, k)
			if out.byKind[k] == nil {
				out.byKind[k] = map[string]struct{}{}
			}
			out.byKind[k][mid] = struct{}{}
		}
		e.Kinds = kinds
		out.entries[mid] = e
	}
	return out, nil
}

func (c *Catalog) Models() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for id := range c.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ModelsFor lists catalog models serving kind.
func (c *Catalog) ModelsFor(kind Kind) []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byKind[kind]))
	for id := range c.byKind[kind] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Check returns an error when the catalog lists models for kind but not model.
func (c *Catalog) Check(kind Kind, model string) error {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.byKind[kind]
	if len(ids) == 0 {
		return nil
	}
	if _, ok := ids[strings.TrimSpace(model)]; ok {
		return nil
	}
	return fmt.Errorf("model %q is not listed for %s in the model catalog", model, kind)
}

// Cost prices a call from its token counts. ok is false when the model has
// no price.
func (c *Catalog) Cost(model string, inputTokens, outputTokens int) (float64, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.RLock()
	e, found := c.entries[strings.TrimSpace(model)]
	c.mu.RUnlock()
	if !found || e.Price == nil {
		return 0, false
	}
	return (float64(inputTokens)*e.Price.Input + float64(outputTokens)*e.Price.Output) / 1e6, true
}

// ToList renders the catalog as a /models reply.
func (c *Catalog) ToList() apitypes.ModelList {
	return c.Merge(nil)
}

// Merge combines the catalog with a live model list. Live entries win;
// catalog-only models are appended with owned_by from the catalog.
func (c *Catalog) Merge(live *apitypes.ModelList) apitypes.ModelList {
	now := time.Now().Unix()
	seen := map[string]struct{}{}
	out := apitypes.ModelList{Object: "list", Data: []apitypes.Model{}}
	if live != nil {
		for _, m := range live.Data {
			seen[m.ID] = struct{}{}
			out.Data = append(out.Data, m)
		}
	}
	for _, id := range c.Models() {
		if _, ok := seen[id]; ok {
			continue
		}
		ownedBy := "gptdesk"
		c.mu.RLock()
		if e, ok := c.entries[id]; ok && e.OwnedBy != "" {
			ownedBy = e.OwnedBy
		}
		c.mu.RUnlock()
		out.Data = append(out.Data, apitypes.Model{ID: id, Object: "model", Created: now, OwnedBy: ownedBy})
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].ID < out.Data[j].ID })
	return out
}

// Load reads a catalog file. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return NewCatalog(nil)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewCatalog(nil)
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return NewCatalog(f.Models)
}
