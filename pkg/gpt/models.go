package gpt

import (
	"context"
	"net/http"
	"sort"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

// ListModels returns the models visible to the key, sorted by id.
func (c *Client) ListModels(ctx context.Context) (*apitypes.ModelList, error) {
	var out apitypes.ModelList
	if err := c.fetch(ctx, call{endpoint: "models", method: http.MethodGet, path: "/models"}, nil, &out); err != nil {
		return nil, err
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].ID < out.Data[j].ID })
	return &out, nil
}
