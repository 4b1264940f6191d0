package gpt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

const filesEndpoint = "files"

// UploadFile uploads data under name with opts.Purpose.
func (c *Client) UploadFile(ctx context.Context, opts options.FileOptions, name string, data []byte) (*apitypes.FileObject, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("file options: %w", err)
	}
	p, err := opts.Payload(name, int64(len(data)))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s is empty", p.Filename)
	}
	body, ct, err := encodeMultipart(p.Fields(), Upload{Field: "file", Name: p.Filename, Data: data})
	if err != nil {
		return nil, err
	}
	cl := call{endpoint: filesEndpoint, method: http.MethodPost, path: "/files", body: body, contentType: ct}
	var out apitypes.FileObject
	if err := c.fetch(ctx, cl, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFiles lists uploaded files, optionally filtered by purpose.
func (c *Client) ListFiles(ctx context.Context, opts options.FileOptions, purpose string) (*apitypes.FileList, error) {
	q := url.Values{}
	if purpose != "" {
		q.Set("purpose", purpose)
	}
	if opts.ListLimit > 0 {
		q.Set("limit", fmt.Sprintf("%d", opts.ListLimit))
	}
	var out apitypes.FileList
	if err := c.fetch(ctx, call{endpoint: filesEndpoint, method: http.MethodGet, path: "/files", query: q}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFile(ctx context.Context, fileID string) (*apitypes.FileObject, error) {
	id, err := pathEscape(fileID)
	if err != nil {
		return nil, fmt.Errorf("file %w", err)
	}
	var out apitypes.FileObject
	if err := c.fetch(ctx, call{endpoint: filesEndpoint, method: http.MethodGet, path: "/files/" + id}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) (*apitypes.DeleteResponse, error) {
	id, err := pathEscape(fileID)
	if err != nil {
		return nil, fmt.Errorf("file %w", err)
	}
	var out apitypes.DeleteResponse
	if err := c.fetch(ctx, call{endpoint: filesEndpoint, method: http.MethodDelete, path: "/files/" + id}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FileContent downloads the raw content of a file.
func (c *Client) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	id, err := pathEscape(fileID)
	if err != nil {
		return nil, fmt.Errorf("file %w", err)
	}
	cl := call{endpoint: filesEndpoint, method: http.MethodGet, path: "/files/" + id + "/content"}
	r, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	c.logCall(timeBefore(r), r.status, cl, r.withIDs(map[string]any{"bytes": len(r.body)}))
	return r.body, nil
}
