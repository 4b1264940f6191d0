package options

import (
	"fmt"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

type VectorOptions struct {
	// ExpiresAfterDays expires a store after this many idle days. Zero keeps it.
	ExpiresAfterDays int `yaml:"expires_after_days" json:"expires_after_days,omitempty"`
	// MaxChunkSizeTokens and ChunkOverlapTokens select the static chunking
	// strategy. Zero for both leaves chunking on auto.
	MaxChunkSizeTokens int `yaml:"max_chunk_size_tokens" json:"max_chunk_size_tokens,omitempty"`
	ChunkOverlapTokens int `yaml:"chunk_overlap_tokens" json:"chunk_overlap_tokens,omitempty"`
	ListLimit          int `yaml:"list_limit" json:"list_limit,omitempty"`
}

func DefaultVectorOptions() VectorOptions {
	return VectorOptions{
		ExpiresAfterDays: 7,
		ListLimit:        20,
	}
}

func (o VectorOptions) Validate() error {
	if o.ExpiresAfterDays < 0 || o.ExpiresAfterDays > 365 {
		return fmt.Errorf("expires_after_days must be in [0,365], got %d", o.ExpiresAfterDays)
	}
	if o.MaxChunkSizeTokens != 0 || o.ChunkOverlapTokens != 0 {
		if o.MaxChunkSizeTokens < 100 || o.MaxChunkSizeTokens > 4096 {
			return fmt.Errorf("max_chunk_size_tokens must be in [100,4096], got %d", o.MaxChunkSizeTokens)
		}
		if o.ChunkOverlapTokens < 0 || o.ChunkOverlapTokens > o.MaxChunkSizeTokens/2 {
			return fmt.Errorf("chunk_overlap_tokens must be in [0,%d], got %d", o.MaxChunkSizeTokens/2, o.ChunkOverlapTokens)
		}
	}
	if o.ListLimit < 0 || o.ListLimit > 100 {
		return fmt.Errorf("list_limit must be in [0,100], got %d", o.ListLimit)
	}
	return nil
}

func (o VectorOptions) chunking() apitypes.JSONObject {
	if o.MaxChunkSizeTokens == 0 {
		return nil
	}
	return apitypes.JSONObject{
		"type": "static",
		"static": map[string]any{
			"max_chunk_size_tokens": o.MaxChunkSizeTokens,
			"chunk_overlap_tokens":  o.ChunkOverlapTokens,
		},
	}
}

func (o VectorOptions) Payload(name string, fileIDs []string) apitypes.VectorStorePayload {
	p := apitypes.VectorStorePayload{
		Name:    strings.TrimSpace(name),
		FileIDs: cloneStrings(fileIDs),
	}
	if o.ExpiresAfterDays > 0 {
		p.ExpiresAfter = &apitypes.ExpiresAfter{Anchor: "last_active_at", Days: o.ExpiresAfterDays}
	}
	if len(fileIDs) > 0 {
		p.ChunkingStrategy = o.chunking()
	}
	return p
}

func (o VectorOptions) FilePayload(fileID string) (apitypes.VectorStoreFilePayload, error) {
	id := strings.TrimSpace(fileID)
	if id == "" {
		return apitypes.VectorStoreFilePayload{}, fmt.Errorf("file id is empty")
	}
	return apitypes.VectorStoreFilePayload{FileID: id, ChunkingStrategy: o.chunking()}, nil
}
