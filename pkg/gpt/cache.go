package gpt

import (
	"fmt"
	"slices"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// embeddingCache keeps recent vectors keyed by model, dimensions and input.
// Vectors are copied in and out so callers may modify what they get.
type embeddingCache struct {
	c *lru.Cache[string, []float64]
}

func newEmbeddingCache(size int) (*embeddingCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &embeddingCache{c: c}, nil
}

func embeddingKey(model string, dims int, input string) string {
	return model + "\x00" + strconv.Itoa(dims) + "\x00" + input
}

func (e *embeddingCache) get(key string) ([]float64, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e.c.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

func (e *embeddingCache) add(key string, v []float64) {
	if e == nil {
		return
	}
	e.c.Add(key, slices.Clone(v))
}

func (e *embeddingCache) len() int {
	if e == nil {
		return 0
	}
	return e.c.Len()
}
