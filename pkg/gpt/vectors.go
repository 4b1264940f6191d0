package gpt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

const vectorsEndpoint = "vector_stores"

func vectorCall(method, path string) call {
	return call{endpoint: vectorsEndpoint, method: method, path: path, beta: true}
}

func (c *Client) CreateVectorStore(ctx context.Context, opts options.VectorOptions, name string, fileIDs []string) (*apitypes.VectorStore, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("vector options: %w", err)
	}
	var out apitypes.VectorStore
	if err := c.fetch(ctx, vectorCall(http.MethodPost, "/vector_stores"), opts.Payload(name, fileIDs), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListVectorStores(ctx context.Context, opts options.VectorOptions, after string) (*apitypes.VectorStoreList, error) {
	cl := vectorCall(http.MethodGet, "/vector_stores")
	cl.query = listQuery(opts.ListLimit, after)
	var out apitypes.VectorStoreList
	if err := c.fetch(ctx, cl, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetVectorStore(ctx context.Context, storeID string) (*apitypes.VectorStore, error) {
	id, err := pathEscape(storeID)
	if err != nil {
		return nil, fmt.Errorf("vector store %w", err)
	}
	var out apitypes.VectorStore
	if err := c.fetch(ctx, vectorCall(http.MethodGet, "/vector_stores/"+id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ModifyVectorStore renames a store and resets its expiry policy from opts.
func (c *Client) ModifyVectorStore(ctx context.Context, opts options.VectorOptions, storeID, name string) (*apitypes.VectorStore, error) {
	id, err := pathEscape(storeID)
	if err != nil {
		return nil, fmt.Errorf("vector store %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("vector options: %w", err)
	}
	p := opts.Payload(strings.TrimSpace(name), nil)
	var out apitypes.VectorStore
	if err := c.fetch(ctx, vectorCall(http.MethodPost, "/vector_stores/"+id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteVectorStore(ctx context.Context, storeID string) (*apitypes.DeleteResponse, error) {
	id, err := pathEscape(storeID)
	if err != nil {
		return nil, fmt.Errorf("vector store %w", err)
	}
	var out apitypes.DeleteResponse
	if err := c.fetch(ctx, vectorCall(http.MethodDelete, "/vector_stores/"+id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddVectorStoreFile attaches an uploaded file to a store.
func (c *Client) AddVectorStoreFile(ctx context.Context, opts options.VectorOptions, storeID, fileID string) (*apitypes.VectorStoreFile, error) {
	id, err := pathEscape(storeID)
	if err != nil {
		return nil, fmt.Errorf("vector store %w", err)
	}
	p, err := opts.FilePayload(fileID)
	if err != nil {
		return nil, err
	}
	var out apitypes.VectorStoreFile
	if err := c.fetch(ctx, vectorCall(http.MethodPost, "/vector_stores/"+id+"/files"), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListVectorStoreFiles(ctx context.Context, opts options.VectorOptions, storeID, after string) (*apitypes.VectorStoreFileList, error) {
	id, err := pathEscape(storeID)
	if err != nil {
		return nil, fmt.Errorf("vector store %w", err)
	}
	cl := vectorCall(http.MethodGet, "/vector_stores/"+id+"/files")
	cl.query = listQuery(opts.ListLimit, after)
	var out apitypes.VectorStoreFileList
	if err := c.fetch(ctx, cl, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveVectorStoreFile detaches a file from a store. The file itself is kept.
func (c *Client) RemoveVectorStoreFile(ctx context.Context, storeID, fileID string) (*apitypes.DeleteResponse, error) {
	sid, err := pathEscape(storeID)
	if err != nil {
		return nil, fmt.Errorf("vector store %w", err)
	}
	fid, err := pathEscape(fileID)
	if err != nil {
		return nil, fmt.Errorf("file %w", err)
	}
	var out apitypes.DeleteResponse
	if err := c.fetch(ctx, vectorCall(http.MethodDelete, "/vector_stores/"+sid+"/files/"+fid), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
