package gpt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/jsonutil"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

const (
	imageEndpoint = "image"
	imageURLPath  = "$.data[*].url"
	imageB64Path  = "$.data[*].b64_json"

	// maxImageBytes is the vendor limit for edit and variation inputs.
	maxImageBytes = 4 << 20
)

// GenerateImage returns image URLs, or base64 payloads when
// opts.ResponseFormat is b64_json.
func (c *Client) GenerateImage(ctx context.Context, opts options.ImageOptions, prompt string) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("image options: %w", err)
	}
	p, err := opts.Payload(prompt)
	if err != nil {
		return nil, err
	}
	cl := call{endpoint: imageEndpoint, method: http.MethodPost, path: "/images/generations", model: p.Model}
	root, r, err := c.sendJSON(ctx, cl, p)
	if err != nil {
		return nil, err
	}
	return c.imageResults(r, cl, root, opts.WantsBase64())
}

// EditImage edits image following prompt. mask may be nil.
func (c *Client) EditImage(ctx context.Context, opts options.ImageOptions, image Upload, mask *Upload, prompt string) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("image options: %w", err)
	}
	p, err := opts.EditPayload(prompt)
	if err != nil {
		return nil, err
	}
	image.Field = "image"
	files := []Upload{image}
	if mask != nil {
		m := *mask
		m.Field = "mask"
		files = append(files, m)
	}
	return c.imageMultipart(ctx, opts, "/images/edits", p.Model, p.Fields(), files)
}

// ImageVariation returns variations of image.
func (c *Client) ImageVariation(ctx context.Context, opts options.ImageOptions, image Upload) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("image options: %w", err)
	}
	p := opts.VariationPayload()
	image.Field = "image"
	return c.imageMultipart(ctx, opts, "/images/variations", p.Model, p.Fields(), []Upload{image})
}

func (c *Client) imageMultipart(ctx context.Context, opts options.ImageOptions, path, model string, fields url.Values, files []Upload) ([]string, error) {
	for _, f := range files {
		if len(f.Data) == 0 {
			return nil, fmt.Errorf("%s file is empty", f.Field)
		}
		if len(f.Data) > maxImageBytes {
			return nil, fmt.Errorf("%s file is %d bytes, limit is %d", f.Field, len(f.Data), maxImageBytes)
		}
	}
	body, ct, err := encodeMultipart(fields, files...)
	if err != nil {
		return nil, err
	}
	cl := call{endpoint: imageEndpoint, method: http.MethodPost, path: path, model: model, body: body, contentType: ct}
	r, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	root, err := apitypes.ParseJSONObject(r.body, "image response")
	if err != nil {
		return nil, err
	}
	return c.imageResults(r, cl, root, opts.WantsBase64())
}

func (c *Client) imageResults(r *reply, cl call, root apitypes.JSONObject, b64 bool) ([]string, error) {
	path := imageURLPath
	if b64 {
		path = imageB64Path
	}
	out := jsonutil.GetStringsByPath(root, path)
	c.logCall(timeBefore(r), r.status, cl, r.withIDs(map[string]any{"images": len(out)}))
	if len(out) == 0 {
		return nil, emptyResponse(path)
	}
	return out, nil
}

// DecodeImage decodes one b64_json result into image bytes.
func DecodeImage(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, errors.New("no image data")
	}
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return b, nil
}
